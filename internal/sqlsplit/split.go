// Package sqlsplit splits a change-set script into the individual statements that make it up.
package sqlsplit

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"
)

type splitterState int

const (
	start          splitterState = iota // 0
	plain                               // 1
	statementBegin                      // 2
	statementEnd                        // 3
)

const (
	annotationStatementBegin = "+dbmigration StatementBegin"
	annotationStatementEnd   = "+dbmigration StatementEnd"
)

const scanBufSize = 4 * 1024 * 1024

var bufferPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, scanBufSize)
		return &buf
	},
}

// Split splits the given SQL script into individual statements.
//
// The base case is to simply split on semicolons at the end of a line, as these naturally
// terminate a statement. A trailing statement without a semicolon is kept as the last statement.
//
// However, more complex cases like pl/pgsql can have semicolons within a statement. For these
// cases the script can wrap the statement in the annotations
//
//	-- +dbmigration StatementBegin
//	-- +dbmigration StatementEnd
//
// to tell the splitter to ignore semicolons in between.
//
// Comments and blank lines before a statement are dropped. A script with no statements yields an
// empty slice and no error.
func Split(script string) ([]string, error) {
	scanBufPtr := bufferPool.Get().(*[]byte)
	scanBuf := *scanBufPtr
	defer bufferPool.Put(scanBufPtr)

	scanner := bufio.NewScanner(strings.NewReader(script))
	scanner.Buffer(scanBuf, scanBufSize)

	var (
		stmts []string
		buf   bytes.Buffer
		state = start
	)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			cmd := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "--"))
			switch cmd {
			case annotationStatementBegin:
				switch state {
				case start, plain, statementEnd:
					if remaining := strings.TrimSpace(buf.String()); len(remaining) > 0 {
						return nil, missingSemicolonError(remaining)
					}
					state = statementBegin
				default:
					return nil, errors.New("nested '-- +dbmigration StatementBegin' annotation")
				}
				continue
			case annotationStatementEnd:
				if state != statementBegin {
					return nil, errors.New("'-- +dbmigration StatementEnd' must be defined after '-- +dbmigration StatementBegin'")
				}
				state = statementEnd
				if s := cleanupStatement(buf.String()); s != "" {
					stmts = append(stmts, s)
				}
				buf.Reset()
				continue
			}
		}
		// Once we've started a statement the buffer is no longer empty, and we keep all comments
		// up until the end of the statement. All other comments in the script are ignored.
		if buf.Len() == 0 && state != statementBegin {
			trimmed := strings.TrimSpace(line)
			if strings.HasPrefix(trimmed, "--") || trimmed == "" {
				continue
			}
		}
		if _, err := buf.WriteString(line + "\n"); err != nil {
			return nil, fmt.Errorf("failed to write to buf: %w", err)
		}
		switch state {
		case start, plain, statementEnd:
			state = plain
			if endsWithSemicolon(line) {
				stmts = append(stmts, cleanupStatement(buf.String()))
				buf.Reset()
			}
		case statementBegin:
			// Semicolons are ignored until the end annotation.
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan script: %w", err)
	}
	if state == statementBegin {
		return nil, errors.New("missing '-- +dbmigration StatementEnd' annotation")
	}
	if remaining := cleanupStatement(buf.String()); remaining != "" {
		stmts = append(stmts, remaining)
	}
	return stmts, nil
}

func missingSemicolonError(s string) error {
	return fmt.Errorf("unexpected unfinished SQL query before StatementBegin: %q: missing semicolon?", s)
}

// cleanupStatement trims whitespace from the given statement.
func cleanupStatement(input string) string {
	return strings.TrimSpace(input)
}

// Checks the line to see if the line has a statement-ending semicolon
// or if the line contains a double-dash comment.
func endsWithSemicolon(line string) bool {
	scanBufPtr := bufferPool.Get().(*[]byte)
	scanBuf := *scanBufPtr
	defer bufferPool.Put(scanBufPtr)

	prev := ""
	scanner := bufio.NewScanner(strings.NewReader(line))
	scanner.Buffer(scanBuf, scanBufSize)
	scanner.Split(bufio.ScanWords)

	for scanner.Scan() {
		word := scanner.Text()
		if strings.HasPrefix(word, "--") {
			break
		}
		prev = word
	}

	return strings.HasSuffix(prev, ";")
}
