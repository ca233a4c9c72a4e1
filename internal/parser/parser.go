// Package parser turns a raw WhatsApp chat-export text file into an ordered
// list of message records. Identities are assigned downstream; the parser
// only classifies lines and accumulates multi-line message text.
package parser

import (
	"bufio"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"waingest/internal/models"
)

// UnknownGroup is the sentinel group name used when the export file name
// does not carry one.
const UnknownGroup = "Unknown Group"

const (
	timestampLayout = "2/1/2006 15:04"
	maxLineBytes    = 1 << 20
)

var (
	// Authored line: "DD/MM/YYYY HH:MM - Author: text". The author segment
	// runs to the first colon.
	messageRe = regexp.MustCompile(`^(\d{1,2}/\d{1,2}/\d{2,4})\s(\d{1,2}:\d{2})\s-\s([^:]+):\s(.+)$`)

	// Dated line without an "Author:" prefix; candidate system message.
	systemRe = regexp.MustCompile(`^(\d{1,2}/\d{1,2}/\d{2,4})\s(\d{1,2}:\d{2})\s-\s(.+)$`)

	// Export file names per locale; the capture is the group display name.
	groupNameRes = []*regexp.Regexp{
		regexp.MustCompile(`Conversa do WhatsApp com (.+?)\.txt`),
		regexp.MustCompile(`WhatsApp Chat with (.+?)\.txt`),
	}

	// WhatsApp generated media names: type prefix, 8-digit date, sequence.
	mediaFilenameRe = regexp.MustCompile(`(?i)((?:IMG|VID|PTT|DOC|STK)-\d{8}-WA\d{4,}\.\w+)`)
)

// mediaPlaceholders are the locale-specific substrings WhatsApp inserts when
// a message carried an attachment.
var mediaPlaceholders = []string{
	"(arquivo anexado)",
	"<Arquivo de mídia oculto>",
	"<Mídia oculta>",
	"(file attached)",
	"<Media omitted>",
}

// ParseFile parses the chat export at path. An unreadable file yields the
// extracted (or fallback) group name and an empty message list; errors are
// logged, never returned.
func ParseFile(path string) (string, []models.ParsedMessage) {
	name := filepath.Base(path)
	f, err := os.Open(path)
	if err != nil {
		slog.Error("open chat export", "path", path, "error", err)
		return GroupNameFromFile(name), nil
	}
	defer f.Close()
	return Parse(f, name)
}

// Parse reads chat-export lines from r and returns the group name derived
// from fileName plus the ordered, materialized message list.
func Parse(r io.Reader, fileName string) (string, []models.ParsedMessage) {
	group := GroupNameFromFile(fileName)

	var msgs []models.ParsedMessage
	var current *models.ParsedMessage

	flush := func() {
		if current != nil {
			msgs = append(msgs, *current)
			current = nil
		}
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if m := messageRe.FindStringSubmatch(line); m != nil {
			ts, err := parseTimestamp(m[1], m[2])
			if err != nil {
				// Message text can itself contain colon-separated fragments
				// that look like a dated line. Keep it as continuation text.
				slog.Warn("unparseable timestamp, treating line as continuation", "date", m[1], "time", m[2])
				appendContinuation(current, line)
				continue
			}

			flush()
			text := strings.TrimSpace(m[4])
			current = &models.ParsedMessage{
				Timestamp:     ts,
				Author:        strings.TrimSpace(m[3]),
				Text:          text,
				HasMedia:      hasMediaPlaceholder(text),
				MediaFilename: extractMediaFilename(text),
			}
			continue
		}

		// An open message absorbs every non-authored line, including ones
		// shaped like system messages.
		if current != nil {
			appendContinuation(current, line)
			continue
		}

		if m := systemRe.FindStringSubmatch(line); m != nil && isSystemBody(m[3]) {
			if ts, err := parseTimestamp(m[1], m[2]); err == nil {
				msgs = append(msgs, models.ParsedMessage{
					Timestamp: ts,
					Author:    models.SystemAuthor,
					Text:      strings.TrimSpace(m[3]),
					IsSystem:  true,
				})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		slog.Error("read chat export", "file", fileName, "error", err)
	}

	flush()
	return group, msgs
}

// GroupNameFromFile extracts the group display name from an export file
// name, falling back to UnknownGroup.
func GroupNameFromFile(fileName string) string {
	for _, re := range groupNameRes {
		if m := re.FindStringSubmatch(fileName); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return UnknownGroup
}

func parseTimestamp(date, clock string) (time.Time, error) {
	return time.Parse(timestampLayout, date+" "+clock)
}

func appendContinuation(current *models.ParsedMessage, line string) {
	if current == nil {
		return
	}
	current.Text += "\n" + line
	if !current.HasMedia {
		current.HasMedia = hasMediaPlaceholder(line)
	}
	if current.MediaFilename == "" {
		current.MediaFilename = extractMediaFilename(line)
	}
}

// isSystemBody rejects bodies with a colon past the first character, which
// would indicate an authored "Author: text" line.
func isSystemBody(body string) bool {
	return strings.Index(body, ":") < 1
}

func hasMediaPlaceholder(text string) bool {
	for _, p := range mediaPlaceholders {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

func extractMediaFilename(text string) string {
	return mediaFilenameRe.FindString(text)
}
