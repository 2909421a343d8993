// Package shell is the interactive front end to a simplefs volume.
//
// Commands are plain functions over a Session so they can be driven by the
// ishell loop or called directly.
package shell

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/deploymenttheory/go-simplefs/internal/disk"
	apperrors "github.com/deploymenttheory/go-simplefs/internal/errors"
	"github.com/deploymenttheory/go-simplefs/internal/fsutil"
	"github.com/deploymenttheory/go-simplefs/internal/logger"
	"github.com/deploymenttheory/go-simplefs/internal/report"
	"github.com/deploymenttheory/go-simplefs/internal/simplefs"
)

// Session is one open device and the volume mounted on it, if any
type Session struct {
	Device disk.BlockDevice
	Volume *simplefs.Volume
}

// NewSession wraps an open device with an unmounted volume
func NewSession(dev disk.BlockDevice) *Session {
	return &Session{Device: dev, Volume: simplefs.New()}
}

// Command is one shell command
type Command struct {
	Name  string
	Usage string
	Help  string
	Args  int
	Run   func(s *Session, w io.Writer, args []string) error
}

var commands = map[string]Command{
	"format":  {Name: "format", Help: "format the device", Run: formatCmd},
	"mount":   {Name: "mount", Help: "mount the formatted device", Run: mountCmd},
	"unmount": {Name: "unmount", Help: "unmount the volume", Run: unmountCmd},
	"debug":   {Name: "debug", Usage: "[human|json|plist]", Help: "dump the superblock and inode table", Run: debugCmd},
	"stat":    {Name: "stat", Usage: "[human|json|plist]", Help: "show block and inode usage", Run: statCmd},
	"create":  {Name: "create", Help: "create a new inode", Run: createCmd},
	"delete":  {Name: "delete", Usage: "<inode>", Args: 1, Help: "delete an inode", Run: deleteCmd},
	"getsize": {Name: "getsize", Usage: "<inode>", Args: 1, Help: "show the size of an inode", Run: getsizeCmd},
	"cat":     {Name: "cat", Usage: "<inode>", Args: 1, Help: "print the contents of an inode", Run: catCmd},
	"copyin":  {Name: "copyin", Usage: "<file> <inode>", Args: 2, Help: "copy a host file into an inode", Run: copyinCmd},
	"copyout": {Name: "copyout", Usage: "<inode> <file>", Args: 2, Help: "copy an inode to a host file", Run: copyoutCmd},
}

// Commands returns every command sorted by name
func Commands() []Command {
	list := make([]Command, 0, len(commands))
	for _, c := range commands {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// Execute runs the named command and writes its output to w
func (s *Session) Execute(w io.Writer, name string, args []string) error {
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", apperrors.ErrInvalidArgument, name)
	}
	if len(args) < cmd.Args {
		return fmt.Errorf("%w: use: %s %s", apperrors.ErrInvalidArgument, cmd.Name, cmd.Usage)
	}
	logger.LogDebug("Shell command", map[string]interface{}{"command": name, "args": args})
	return cmd.Run(s, w, args)
}

func parseInode(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("%w: inode number %q", apperrors.ErrInvalidArgument, arg)
	}
	return n, nil
}

func optionalFormat(args []string) (report.Format, error) {
	if len(args) == 0 {
		return report.FormatHuman, nil
	}
	return report.ParseFormat(args[0])
}

func formatCmd(s *Session, w io.Writer, _ []string) error {
	if _, err := s.Volume.Format(s.Device); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "disk formatted.")
	return err
}

func mountCmd(s *Session, w io.Writer, _ []string) error {
	if err := s.Volume.Mount(s.Device); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "disk mounted.")
	return err
}

func unmountCmd(s *Session, w io.Writer, _ []string) error {
	if err := s.Volume.Unmount(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "disk unmounted.")
	return err
}

func debugCmd(s *Session, w io.Writer, args []string) error {
	format, err := optionalFormat(args)
	if err != nil {
		return err
	}
	dump, err := s.Volume.DebugDump(s.Device)
	if err != nil {
		return err
	}
	return report.Render(w, dump, format)
}

func statCmd(s *Session, w io.Writer, args []string) error {
	format, err := optionalFormat(args)
	if err != nil {
		return err
	}
	usage, err := s.Volume.Stat()
	if err != nil {
		return err
	}
	return report.RenderUsage(w, usage, format)
}

func createCmd(s *Session, w io.Writer, _ []string) error {
	n, err := s.Volume.CreateInode()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "created inode %d\n", n)
	return err
}

func deleteCmd(s *Session, w io.Writer, args []string) error {
	n, err := parseInode(args[0])
	if err != nil {
		return err
	}
	if err := s.Volume.DeleteInode(n); err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "inode %d deleted.\n", n)
	return err
}

func getsizeCmd(s *Session, w io.Writer, args []string) error {
	n, err := parseInode(args[0])
	if err != nil {
		return err
	}
	size, err := s.Volume.GetSize(n)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "inode %d has size %d\n", n, size)
	return err
}

func catCmd(s *Session, w io.Writer, args []string) error {
	n, err := parseInode(args[0])
	if err != nil {
		return err
	}
	_, err = simplefs.CopyOut(s.Volume, n, w)
	return err
}

func copyinCmd(s *Session, w io.Writer, args []string) error {
	n, err := parseInode(args[1])
	if err != nil {
		return err
	}
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrFileReadError, err)
	}
	defer f.Close()

	copied, err := simplefs.CopyIn(s.Volume, n, f)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%d bytes copied\ncopied file %s to inode %d\n", copied, args[0], n)
	return err
}

func copyoutCmd(s *Session, w io.Writer, args []string) error {
	n, err := parseInode(args[0])
	if err != nil {
		return err
	}
	f, err := fsutil.CreateFileWithDirs(args[1])
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrFileWriteError, err)
	}
	copied, err := simplefs.CopyOut(s.Volume, n, f)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("%w: %v", apperrors.ErrFileWriteError, closeErr)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%d bytes copied\ncopied inode %d to file %s\n", copied, n, args[1])
	return err
}
