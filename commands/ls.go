package commands

import (
	"fmt"
	"io/fs"
	"math"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/josephlewis42/pipesh/core/vos"
)

// defaultLsWidth is used when COLUMNS isn't set.
const defaultLsWidth = 80

// Ls implements the UNIX ls command.
func Ls(virtOS vos.VOS) int {
	cmd := &SimpleCommand{
		Use:   "ls [OPTION]... [FILE]...",
		Short: "List information about the FILEs (the current directory by default).",
	}
	// -h is taken by human readable sizes.
	cmd.ShowHelp = cmd.Flags().BoolLong("help", '?', "show help and exit")

	opts := cmd.Flags()
	listAll := opts.Bool('a', "don't ignore entries starting with .")
	longListing := opts.Bool('l', "use a long listing format")
	humanSize := opts.BoolLong("human-readable", 'h', "print human readable sizes")
	lineWidth := opts.IntLong("width", 'w', terminalWidth(virtOS), "set the column width, 0 is infinite")

	var color ColorPrinter
	color.Init(opts, virtOS)

	return cmd.Run(virtOS, func() int {
		directoriesToList := opts.Args()
		if len(directoriesToList) == 0 {
			directoriesToList = append(directoriesToList, ".")
		}
		sort.Strings(directoriesToList)

		showDirectoryNames := len(directoriesToList) > 1

		sizeFmt := func(bytes int64) string {
			return fmt.Sprintf("%d", bytes)
		}
		if *humanSize {
			sizeFmt = BytesToHuman
		}

		if *lineWidth <= 0 {
			*lineWidth = math.MaxInt32
		}

		exitCode := 0
		for i, directory := range directoriesToList {
			paths, err := readDir(virtOS, directory, *listAll)
			if err != nil {
				cmd.LogProgramError(virtOS, err)
				exitCode = 1
				continue
			}

			w := virtOS.Stdout()
			if showDirectoryNames {
				if i > 0 {
					fmt.Fprintln(w)
				}
				fmt.Fprintf(w, "%s:\n", directory)
			}

			if *longListing {
				var totalSize int64
				for _, f := range paths {
					totalSize += f.Size()
				}

				fmt.Fprintf(w, "total %s\n", sizeFmt(totalSize))
				tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
				for _, f := range paths {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
						f.Mode().String(),
						sizeFmt(f.Size()),
						lsModTime(f.ModTime()),
						color.Sprintf(Dircolor(f), "%s", f.Name()))
				}
				tw.Flush()
				continue
			}

			colWidths, rows := columnize(paths, *lineWidth)
			for row := 0; row < rows; row++ {
				var line strings.Builder
				for col, width := range colWidths {
					index := (col * rows) + row
					if index >= len(paths) {
						break
					}
					// Add padding if there was a column before this.
					if col > 0 {
						line.WriteString("  ")
					}
					name := paths[index].Name()
					line.WriteString(color.Sprintf(Dircolor(paths[index]), "%s", name))
					if pad := width - len(name); pad > 0 && index+rows < len(paths) {
						line.WriteString(strings.Repeat(" ", pad))
					}
				}
				fmt.Fprintln(w, line.String())
			}
		}

		return exitCode
	})
}

// readDir lists a directory sorted by name. A regular file lists as itself.
func readDir(virtOS vos.VOS, name string, listAll bool) ([]os.FileInfo, error) {
	file, err := virtOS.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []os.FileInfo{info}, nil
	}

	allPaths, err := file.Readdir(-1)
	if err != nil {
		return nil, err
	}

	var paths []os.FileInfo
	for _, p := range allPaths {
		if !listAll && strings.HasPrefix(p.Name(), ".") {
			continue
		}
		paths = append(paths, p)
	}
	sort.Slice(paths, func(i int, j int) bool {
		return paths[i].Name() < paths[j].Name()
	})
	return paths, nil
}

func terminalWidth(virtOS vos.VOS) int {
	if cols, err := strconv.Atoi(virtOS.Getenv("COLUMNS")); err == nil && cols > 0 {
		return cols
	}
	return defaultLsWidth
}

// lsModTime includes the time for files modified this year, the year
// otherwise.
func lsModTime(t time.Time) string {
	if t.Year() >= time.Now().Year() {
		return t.Format("Jan _2 15:04")
	}
	return t.Format("Jan _2  2006")
}

type LsColorTest struct {
	color []color.Attribute
	test  func(fileInfo os.FileInfo) bool
}

var archiveExtensions = map[string]bool{
	".tar": true,
	".tgz": true,
	".zip": true,
	".gz":  true,
	".bz2": true,
	".bz":  true,
	".tbz": true,
	".deb": true,
	".rpm": true,
	".jar": true,
	".war": true,
	".rar": true,
}

// Color listing comes from: https://askubuntu.com/a/884513
var dircolors = []LsColorTest{
	// Directories are bold blue.
	{color: ColorBoldBlue, test: os.FileInfo.IsDir},
	// Symlinks are bold cyan.
	{color: ColorBoldCyan, test: func(fi os.FileInfo) bool {
		return fi.Mode()&fs.ModeSymlink > 0
	}},
	// Yellow with black background pipe, block device, char device.
	{color: []color.Attribute{color.FgYellow, color.BgBlack, color.Bold}, test: func(fi os.FileInfo) bool {
		return fi.Mode()&(fs.ModeDevice|fs.ModeNamedPipe|fs.ModeSocket|fs.ModeCharDevice) > 0
	}},
	// Executables are bold green.
	{color: ColorBoldGreen, test: func(fi os.FileInfo) bool {
		return fi.Mode().Perm()&0111 > 0
	}},
	// Archives are bold red.
	{color: ColorBoldRed, test: func(fi os.FileInfo) bool {
		return archiveExtensions[path.Ext(fi.Name())]
	}},
}

func Dircolor(fileInfo os.FileInfo) []color.Attribute {
	for _, dc := range dircolors {
		if dc.test(fileInfo) {
			return dc.color
		}
	}

	// Anything else defaults to white.
	return []color.Attribute{color.FgHiWhite}
}

func lsRows(numFiles, columns int) int {
	if columns == 0 {
		return 0
	}
	return (numFiles + columns - 1) / columns
}

// columnize finds the most columns the names fit in within screenWidth and
// returns the width of each and the number of rows. Names fill columns top to
// bottom.
func columnize(paths []fs.FileInfo, screenWidth int) ([]int, int) {
	numFiles := len(paths)
	if numFiles == 0 {
		return nil, 0
	}

	const colPadding = 2

	// 3 is the minimum column width, 1 char filename + 2 padding.
	columns := screenWidth / (1 + colPadding)
	if columns > numFiles {
		columns = numFiles
	}
	if columns < 1 {
		columns = 1
	}

	var maximums []int // Holds maximum size of a name in the column.
	var rows int
	for ; columns >= 1; columns-- {
		rows = lsRows(numFiles, columns)
		maximums = make([]int, lsRows(numFiles, rows))
		for i, p := range paths {
			if l := len(p.Name()); l > maximums[i/rows] {
				maximums[i/rows] = l
			}
		}

		total := (len(maximums) - 1) * colPadding
		for _, m := range maximums {
			total += m
		}
		if total <= screenWidth {
			return maximums, rows
		}
	}

	return maximums, rows
}

var _ vos.ProcessFunc = Ls

func init() {
	addBinCmd("ls", Ls)
}
