package notus

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// FormatPrettyString is a convenience wrapper that outputs to a string
// instead of an io.Writer.
func FormatPrettyString(d *Delta, colorTTY bool) (string, error) {
	buf := &bytes.Buffer{}
	if err := FormatPretty(buf, d, colorTTY); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// FormatPretty writes a one-op-per-line report of a delta to w. If
// colorTTY is true it will add
// green "+" for insertions
// red "-" for deletions
// blue "~" for attributed retains
func FormatPretty(w io.Writer, d *Delta, colorTTY bool) error {
	var colorMap map[OpKind]string
	closeColor := ""

	if colorTTY {
		closeColor = "\x1b[0m"
		colorMap = map[OpKind]string{
			OpRetain:       "\x1b[34m", // blue
			OpInsert:       "\x1b[32m", // green
			OpInsertObject: "\x1b[32m", // green
			OpDelete:       "\x1b[31m", // red
		}
	}

	for _, op := range d.Ops() {
		color := ""
		if op.Kind != OpRetain || op.HasAttributes() {
			color = colorMap[op.Kind]
		}
		if _, err := fmt.Fprintf(w, "%s%s%s%s\n", color, opSign(op), formatOp(op), closeColor); err != nil {
			return err
		}
	}
	return nil
}

func opSign(op Op) string {
	switch op.Kind {
	case OpInsert, OpInsertObject:
		return "+ "
	case OpDelete:
		return "- "
	default:
		if op.HasAttributes() {
			return "~ "
		}
		return "  "
	}
}

func formatOp(op Op) string {
	var b strings.Builder
	switch op.Kind {
	case OpInsert:
		b.WriteString("insert ")
		b.WriteString(strconv.Quote(op.Text))
	case OpInsertObject:
		fmt.Fprintf(&b, "insert {%s: %v}", op.Key, op.Value)
	case OpRetain:
		fmt.Fprintf(&b, "retain %d", op.N)
	case OpDelete:
		fmt.Fprintf(&b, "delete %d", op.N)
	}
	if op.HasAttributes() {
		b.WriteString(" ")
		b.WriteString(formatAttributes(op.Attributes))
	}
	return b.String()
}

func formatAttributes(attrs Attributes) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		if attrs[k] == nil {
			parts[i] = k + ": null"
		} else {
			parts[i] = fmt.Sprintf("%s: %v", k, attrs[k])
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// String renders the delta compactly on one line, for error messages and
// debugging.
func (d *Delta) String() string {
	parts := make([]string, len(d.ops))
	for i, op := range d.ops {
		parts[i] = formatOp(op)
	}
	return "[" + strings.Join(parts, " · ") + "]"
}
