// fsck is a read-only diagnostic over a filesystem image file: it
// parses the packed layout internal/fsimage expects (spec.md §6),
// lists every directory entry, and for each regular file runs the
// same ELF header check internal/elf.Validate applies at load time —
// the host-side equivalent of running the real kernel's loader
// against every entry without actually executing any of them.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aerohand/xios/internal/elf"
	"github.com/aerohand/xios/internal/fsimage"
)

func newFsckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fsck <image-file>",
		Short: "Validate and list a filesystem image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			applyVerbosity()
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("xioshost fsck: %w", err)
			}
			img, err := fsimage.Parse(raw)
			if err != nil {
				return fmt.Errorf("xioshost fsck: %w", err)
			}
			fmt.Printf("%d dentries\n", img.NumDentries())
			for i := 0; i < img.NumDentries(); i++ {
				d, ok := img.ReadDentryByIndex(i)
				if !ok {
					continue
				}
				length, _ := img.FileLength(d.Inode)
				status := ""
				if d.Type == fsimage.TypeFile {
					status = fsckValidateELF(img, d)
				}
				fmt.Printf("  %-32s type=%d inode=%-4d len=%-8d %s\n", d.Name, d.Type, d.Inode, length, status)
			}
			return nil
		},
	}
	return cmd
}

func fsckValidateELF(img *fsimage.Image, d fsimage.Dentry) string {
	length, err := img.FileLength(d.Inode)
	if err != nil {
		return fmt.Sprintf("[bad inode: %v]", err)
	}
	buf := make([]byte, length)
	if _, err := img.ReadData(d.Inode, 0, buf); err != nil {
		return fmt.Sprintf("[read error: %v]", err)
	}
	if _, err := elf.Validate(buf); err != nil {
		return fmt.Sprintf("[not executable: %v]", err)
	}
	return "[executable]"
}
