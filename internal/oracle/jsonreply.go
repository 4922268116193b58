package oracle

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// decodeReply unmarshals the JSON document inside a model reply, tolerating
// markdown fences and prose around it.
func decodeReply(reply string, v any) error {
	body := strings.TrimSpace(reply)
	body = strings.TrimPrefix(body, "```json")
	body = strings.TrimPrefix(body, "```JSON")
	body = strings.TrimPrefix(body, "```")
	body = strings.TrimSuffix(body, "```")
	body = strings.TrimSpace(body)

	start := strings.IndexAny(body, "{[")
	if start < 0 {
		return eris.New("reply contains no JSON")
	}
	closer := "}"
	if body[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(body, closer)
	if end < start {
		return eris.New("reply contains unterminated JSON")
	}

	if err := json.Unmarshal([]byte(body[start:end+1]), v); err != nil {
		return eris.Wrap(err, "decode reply JSON")
	}
	return nil
}
