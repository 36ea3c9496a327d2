// Package voice turns already-transcribed order utterances into cart
// commands. It does not talk to any speech API; the transcript arrives from
// the client, which owns the third-party transcription call.
package voice

import "strings"

type Action string

const (
	ActionAdd    Action = "add"
	ActionRemove Action = "remove"
	ActionClear  Action = "clear"
)

// Command is one recognized cart mutation. Query is the free-text product
// reference to resolve against the catalog.
type Command struct {
	Action   Action `json:"action"`
	Quantity int32  `json:"quantity"`
	Query    string `json:"query"`
}

var numberWords = map[string]int32{
	"a": 1, "an": 1, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10, "dozen": 12,
}

var fillerWords = map[string]bool{
	"please": true, "the": true, "of": true, "some": true, "me": true,
	"i": true, "want": true, "like": true, "would": true, "get": true,
}

// Parse splits a transcript into commands. Segments are separated by "and",
// commas, or periods; each segment starts with a verb (add/remove/delete/
// clear), an optional quantity, then the product words. Unrecognized
// segments are skipped rather than failing the whole utterance.
func Parse(transcript string) []Command {
	var commands []Command

	normalized := strings.ToLower(transcript)
	for _, sep := range []string{",", ".", ";", " and "} {
		normalized = strings.ReplaceAll(normalized, sep, "|")
	}

	for _, segment := range strings.Split(normalized, "|") {
		words := strings.Fields(segment)
		if len(words) == 0 {
			continue
		}

		action := ActionAdd
		switch words[0] {
		case "add", "order", "give":
			words = words[1:]
		case "remove", "delete", "cancel":
			action = ActionRemove
			words = words[1:]
		case "clear", "empty":
			commands = append(commands, Command{Action: ActionClear})
			continue
		}

		quantity := int32(1)
		var queryWords []string
		for i, w := range words {
			if i == 0 {
				if n, ok := numberWords[w]; ok {
					quantity = n
					continue
				}
				if n, ok := parseDigits(w); ok {
					quantity = n
					continue
				}
			}
			if fillerWords[w] {
				continue
			}
			queryWords = append(queryWords, w)
		}

		if len(queryWords) == 0 {
			continue
		}
		commands = append(commands, Command{
			Action:   action,
			Quantity: quantity,
			Query:    strings.Join(queryWords, " "),
		})
	}

	return commands
}

func parseDigits(w string) (int32, bool) {
	var n int32
	for _, r := range w {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int32(r-'0')
	}
	if n == 0 {
		return 0, false
	}
	return n, true
}
