// Package report renders volume inspection results as text, JSON or XML property lists
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"howett.net/plist"

	apperrors "github.com/deploymenttheory/go-simplefs/internal/errors"
	"github.com/deploymenttheory/go-simplefs/internal/simplefs"
)

// Format is an output encoding
type Format string

const (
	FormatHuman Format = "human"
	FormatJSON  Format = "json"
	FormatPlist Format = "plist"
)

// ParseFormat validates an output format name
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(name)); f {
	case FormatHuman, FormatJSON, FormatPlist:
		return f, nil
	case "":
		return FormatHuman, nil
	default:
		return "", fmt.Errorf("%w: %s", apperrors.ErrUnsupportedFormat, name)
	}
}

// Render writes a debug dump in the given format
func Render(w io.Writer, r *simplefs.DebugReport, format Format) error {
	switch format {
	case FormatHuman, "":
		return renderHuman(w, r)
	case FormatJSON:
		return renderJSON(w, r)
	case FormatPlist:
		return renderPlist(w, r)
	default:
		return fmt.Errorf("%w: %s", apperrors.ErrUnsupportedFormat, format)
	}
}

// RenderUsage writes volume usage in the given format
func RenderUsage(w io.Writer, u simplefs.Usage, format Format) error {
	switch format {
	case FormatHuman, "":
		_, err := fmt.Fprintf(w,
			"blocks:\n    %d total\n    %d inode blocks\n    %d data blocks\n    %d free\n"+
				"inodes:\n    %d total\n    %d used\n",
			u.BlockCount, u.InodeBlockCount, u.DataBlocks, u.FreeBlocks, u.InodeCount, u.UsedInodes)
		return err
	case FormatJSON:
		return renderJSON(w, u)
	case FormatPlist:
		return renderPlist(w, u)
	default:
		return fmt.Errorf("%w: %s", apperrors.ErrUnsupportedFormat, format)
	}
}

func renderHuman(w io.Writer, r *simplefs.DebugReport) error {
	var b strings.Builder

	sb := r.Superblock
	fmt.Fprintf(&b, "superblock:\n")
	fmt.Fprintf(&b, "    %d blocks\n", sb.BlockCount)
	fmt.Fprintf(&b, "    %d inode blocks\n", sb.InodeBlockCount)
	fmt.Fprintf(&b, "    %d inodes\n", sb.InodeCount)

	for _, ino := range r.Inodes {
		fmt.Fprintf(&b, "-----\n inode: %d\n", ino.Number)
		fmt.Fprintf(&b, "size: %d \n", ino.Size)
		b.WriteString("blocks:")
		for _, block := range ino.Blocks {
			fmt.Fprintf(&b, "  %d", block)
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func renderJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func renderPlist(w io.Writer, v interface{}) error {
	encoder := plist.NewEncoderForFormat(w, plist.XMLFormat)
	encoder.Indent("\t")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode plist: %w", err)
	}
	return nil
}
