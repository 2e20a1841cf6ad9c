package dbops

import "encoding/json"

func decodeJSON(raw string, v interface{}) error {
	return json.Unmarshal([]byte(raw), v)
}
