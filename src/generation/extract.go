package generation

import (
	"regexp"
	"strings"
)

// Source tells where the committed artifact came from.
type Source string

const (
	SourceFileWrite Source = "file_write"
	SourceCodeBlock Source = "code_block"
	SourceReply     Source = "reply"
)

var (
	goFence  = regexp.MustCompile("(?s)```go[ \t]*\r?\n(.*?)```")
	anyFence = regexp.MustCompile("(?s)```[A-Za-z0-9_+.-]*[ \t]*\r?\n(.*?)```")
)

// Extract recovers source code from a model reply: the first go fenced
// block, else the first fenced block of any kind, else the whole reply.
func Extract(reply string) (string, Source) {
	for _, re := range []*regexp.Regexp{goFence, anyFence} {
		if m := re.FindStringSubmatch(reply); m != nil {
			if code := strings.TrimSpace(m[1]); code != "" {
				return code + "\n", SourceCodeBlock
			}
		}
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", SourceReply
	}
	return reply + "\n", SourceReply
}
