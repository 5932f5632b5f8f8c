package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	"golang.org/x/term"

	"github.com/phroun/folio"
	"github.com/phroun/folio/sqlitejournal"
)

// Version will be set during the build process using ldflags
var Version = "(dev) v0.0.0"

// REPL holds the state of the interactive session
type REPL struct {
	opts        folio.Options
	journalPath string

	loop    *folio.Loop
	source  *folio.FileSource
	journal folio.Journal
	sink    *folio.TextSink
	ctrl    *folio.Controller
	reader  *bufio.Reader
}

func main() {
	versionFlag := flag.Bool("version", false, "Print the version of the program")
	pageSize := flag.Int64("page-size", folio.DefaultPageSize, "Nominal page size in bytes")
	encoding := flag.String("encoding", folio.DefaultEncoding, "Charset used to decode the file")
	lookahead := flag.Int("lookahead", folio.DefaultPrefetchLookaheadPages, "Pages kept past the visible area")
	journal := flag.String("journal", "", "SQLite database for unsaved edits (default: in memory)")
	verbose := flag.Int("v", 0, "Log verbosity (0 = quiet)")
	logFile := flag.String("logfile", "", "Write log output to this file instead of stderr")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("folio REPL version %s\n", Version)
		return
	}

	if *logFile != "" {
		commonlog.Configure(*verbose, logFile)
	} else {
		commonlog.Configure(*verbose, nil)
	}

	opts := folio.Options{
		PageSize:               *pageSize,
		PrefetchLookaheadPages: *lookahead,
		Encoding:               *encoding,
	}
	if *pageSize <= folio.DefaultMaxPageBoundaryShift {
		opts.MaxPageBoundaryShift = *pageSize / 4
	}
	if err := opts.Validate(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	width, height := 80, 20
	if fd := int(os.Stdout.Fd()); term.IsTerminal(fd) {
		if w, h, err := term.GetSize(fd); err == nil && h > 4 {
			width, height = w, h-4
		}
	}

	fmt.Println("Folio REPL - Paged Document Viewer")
	fmt.Println("Type 'help' for available commands, 'quit' to exit")
	fmt.Println()

	repl := &REPL{
		opts:        opts,
		journalPath: *journal,
		loop:        folio.NewLoop(),
		sink:        folio.NewTextSink(width, height),
		reader:      bufio.NewReader(os.Stdin),
	}
	defer repl.loop.Close()

	if flag.NArg() > 0 {
		repl.cmdOpen(flag.Args()[:1])
	}

	// Main loop
	for {
		fmt.Print("folio> ")
		input, err := repl.reader.ReadString('\n')
		if err != nil {
			fmt.Println("\nGoodbye!")
			break
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if !repl.handleCommand(input) {
			break
		}
	}

	repl.cmdClose()
}

func (r *REPL) handleCommand(input string) bool {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return true
	}

	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	if cmd != "help" && cmd != "quit" && cmd != "exit" && cmd != "open" && r.ctrl == nil {
		fmt.Println("No document open. Use 'open <filepath>'.")
		return true
	}

	switch cmd {
	case "help":
		r.printHelp()

	case "quit", "exit":
		fmt.Println("Goodbye!")
		return false

	case "open":
		r.cmdOpen(args)

	case "close":
		r.cmdClose()

	case "status":
		r.cmdStatus()

	case "goto":
		r.cmdGoto(args)

	case "scroll":
		r.cmdScroll(args)

	case "resize":
		r.cmdResize(args)

	case "print", "p":
		r.cmdPrint()

	case "page":
		r.cmdPage(args)

	case "insert":
		r.cmdInsert(args)

	case "delete":
		r.cmdDelete(args)

	case "undo":
		r.cmdUndoRedo(true)

	case "redo":
		r.cmdUndoRedo(false)

	case "show":
		r.cmdShow(args)

	case "save":
		r.cmdSave()

	case "cancel":
		r.cmdCancel()

	case "encoding":
		r.cmdEncoding(args)

	case "window":
		r.cmdWindow()

	case "stats":
		r.cmdStats()

	case "watch":
		r.cmdWatch(args)

	case "reload":
		r.cmdReload()

	default:
		fmt.Printf("Unknown command: %s. Type 'help' for available commands.\n", cmd)
	}

	return true
}

func (r *REPL) printHelp() {
	help := `
Available Commands:
-------------------

FILE OPERATIONS:
  open <filepath>                 Open a file
  close                           Close the current document
  status                          Show document status
  save                            Write edits back to the file
  cancel                          Cancel a save in progress
  reload                          Re-read the file from disk
  watch <seconds>                 Poll the file for external changes
  encoding <name>                 Re-decode the file (utf-8, windows-1252, utf-16le, ...)

NAVIGATION:
  goto <page> [row]               Scroll to a row of a page
  scroll <rows>                   Scroll by rows (negative scrolls up)
  resize <width> <height>         Change the viewport size
  show <page> <off> <page> <off>  Reveal and select a range

VIEWING:
  print, p                        Print the visible rows
  page <n>                        Print a materialized page
  window                          Show materialized, cached and pending pages
  stats                           Show memory and activity counters

EDIT OPERATIONS:
  insert <page> <offset> <text>   Insert text at a symbol offset
  delete <page> <offset> <count>  Delete count symbols
  undo                            Undo the last edit
  redo                            Redo the last undone edit

OTHER:
  help                            Show this help message
  quit, exit                      Exit the REPL
`
	fmt.Println(help)
}

// do runs fn on the controller's loop.
func (r *REPL) do(fn func(c *folio.Controller)) {
	r.loop.Do(func() {
		if r.ctrl != nil {
			fn(r.ctrl)
		}
	})
}

// settle waits briefly for outstanding reads and saves to finish so the
// next print shows the result of the last command.
func (r *REPL) settle() {
	for i := 0; i < 200; i++ {
		busy := false
		r.do(func(c *folio.Controller) {
			busy = c.State() == folio.StateLoading || c.Saving()
		})
		if !busy {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	fmt.Println("(still loading)")
}

func (r *REPL) cmdOpen(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: open <filepath>")
		return
	}
	r.cmdClose()

	path := args[0]
	src, err := folio.OpenFileSource(path, r.opts)
	if err != nil {
		fmt.Printf("Error opening file: %v\n", err)
		return
	}

	var journal folio.Journal
	if r.journalPath != "" {
		abs, _ := filepath.Abs(path)
		j, err := sqlitejournal.Open(r.journalPath, abs)
		if err != nil {
			fmt.Printf("Error opening journal: %v\n", err)
			src.Close()
			return
		}
		journal = j
	}

	ctrl, err := folio.NewController(folio.Config{
		Source:   src,
		Sink:     r.sink,
		Viewport: r.sink,
		Executor: r.loop,
		Journal:  journal,
		Options:  r.opts,
	})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		src.Close()
		if journal != nil {
			journal.Close()
		}
		return
	}

	ctrl.SetStateHandler(func(s folio.State, err error) {
		if err != nil {
			fmt.Printf("\n[%s] %v\n", s, err)
		}
	})
	ctrl.SetSaveHandler(func(err error) {
		if err != nil {
			fmt.Printf("\n[save] %v\n", err)
		} else {
			fmt.Println("\n[save] done")
		}
	})

	r.source = src
	r.journal = journal
	r.loop.Do(func() {
		r.ctrl = ctrl
		ctrl.OnViewportResized(r.sink.Height())
	})
	r.settle()

	fmt.Printf("Opened %s (%d bytes, %s)\n", path, src.Size(), src.Charset().Name())
	r.cmdStatus()
}

func (r *REPL) cmdClose() {
	if r.ctrl == nil {
		return
	}
	r.loop.Do(func() {
		if err := r.ctrl.Close(); err != nil {
			fmt.Printf("Error closing: %v\n", err)
		}
		r.ctrl = nil
	})
	if err := r.source.Close(); err != nil {
		fmt.Printf("Error closing file: %v\n", err)
	}
	r.source = nil
	if r.journal != nil {
		if err := r.journal.Close(); err != nil {
			fmt.Printf("Error closing journal: %v\n", err)
		}
		r.journal = nil
	}
	fmt.Println("Document closed")
}

func (r *REPL) cmdStatus() {
	r.do(func(c *folio.Controller) {
		dirty, _ := c.Dirty()
		target := c.Target()
		fmt.Printf("State:      %s\n", c.State())
		if err := c.Err(); err != nil {
			fmt.Printf("Error:      %v\n", err)
		}
		fmt.Printf("File:       %s\n", r.source.Path())
		fmt.Printf("Encoding:   %s\n", r.source.Charset().Name())
		fmt.Printf("Pages:      %d\n", c.PageCount())
		fmt.Printf("Target:     %v\n", target)
		fmt.Printf("Dirty:      %v\n", dirty)
		fmt.Printf("Undo/Redo:  %v/%v\n", c.CanUndo(), c.CanRedo())
		if tok := c.ActiveToken(); tok != nil {
			fmt.Printf("Token:      %s\n", tok.Reason)
		}
	})
}

func (r *REPL) cmdGoto(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: goto <page> [row]")
		return
	}
	page, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		fmt.Printf("Invalid page: %s\n", args[0])
		return
	}
	row := 0
	if len(args) > 1 {
		if row, err = strconv.Atoi(args[1]); err != nil {
			fmt.Printf("Invalid row: %s\n", args[1])
			return
		}
	}

	ok := false
	r.do(func(c *folio.Controller) {
		ok = c.SetTargetPosition(folio.AbsolutePosition{Page: page, Offset: row})
	})
	if !ok {
		fmt.Println("Busy; try again")
		return
	}
	r.settle()
	r.cmdPrint()
}

func (r *REPL) cmdScroll(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: scroll <rows>")
		return
	}
	delta, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Printf("Invalid row count: %s\n", args[0])
		return
	}

	ok := false
	r.do(func(c *folio.Controller) { ok = c.ScrollBy(delta) })
	if !ok {
		fmt.Println("Busy; try again")
		return
	}
	r.settle()
	r.cmdPrint()
}

func (r *REPL) cmdResize(args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: resize <width> <height>")
		return
	}
	width, err1 := strconv.Atoi(args[0])
	height, err2 := strconv.Atoi(args[1])
	if err1 != nil || err2 != nil || width < 0 || height < 0 {
		fmt.Println("Invalid size")
		return
	}
	r.do(func(c *folio.Controller) {
		r.sink.Resize(width, height)
		c.OnViewportResized(height)
	})
	r.settle()
	r.cmdPrint()
}

func (r *REPL) cmdPrint() {
	var target folio.AbsolutePosition
	r.do(func(c *folio.Controller) { target = c.Target() })

	bar := r.sink.Scrollbar()
	fmt.Printf("--- page %d of %d, row %d ---\n", target.Page, bar.PageCount, target.Offset)
	for _, row := range r.sink.VisibleRows() {
		fmt.Println(row)
	}
	fmt.Println("---")
}

func (r *REPL) cmdPage(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: page <n>")
		return
	}
	n, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		fmt.Printf("Invalid page: %s\n", args[0])
		return
	}
	r.do(func(c *folio.Controller) {
		p, ok := c.Page(n)
		if !ok {
			fmt.Printf("Page %d is not materialized\n", n)
			return
		}
		fmt.Printf("Page %d (%d symbols, last=%v):\n%q\n", p.Number, p.Len(), p.IsLast, p.Text)
	})
}

// parseSymbol reads a page and offset pair from args.
func parseSymbol(args []string) (folio.SymbolPosition, error) {
	page, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return folio.SymbolPosition{}, fmt.Errorf("invalid page: %s", args[0])
	}
	off, err := strconv.Atoi(args[1])
	if err != nil {
		return folio.SymbolPosition{}, fmt.Errorf("invalid offset: %s", args[1])
	}
	return folio.Symbol(page, off), nil
}

func (r *REPL) cmdInsert(args []string) {
	if len(args) < 3 {
		fmt.Println("Usage: insert <page> <offset> <text>")
		return
	}
	pos, err := parseSymbol(args)
	if err != nil {
		fmt.Println(err)
		return
	}
	text := strings.Join(args[2:], " ")
	text = strings.ReplaceAll(text, `\n`, "\n")

	r.do(func(c *folio.Controller) {
		err = c.ApplyEdit(folio.Edit{Page: pos.Page, Offset: pos.Offset, Inserted: text})
	})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	r.cmdPrint()
}

func (r *REPL) cmdDelete(args []string) {
	if len(args) < 3 {
		fmt.Println("Usage: delete <page> <offset> <count>")
		return
	}
	pos, err := parseSymbol(args)
	if err != nil {
		fmt.Println(err)
		return
	}
	count, err := strconv.Atoi(args[2])
	if err != nil || count < 0 {
		fmt.Printf("Invalid count: %s\n", args[2])
		return
	}

	r.do(func(c *folio.Controller) {
		p, ok := c.Page(pos.Page)
		if !ok {
			err = fmt.Errorf("%w: %d", folio.ErrPageNotMaterialized, pos.Page)
			return
		}
		runes := []rune(p.Text)
		if pos.Offset < 0 || pos.Offset+count > len(runes) {
			err = folio.ErrInvalidPosition
			return
		}
		removed := string(runes[pos.Offset : pos.Offset+count])
		err = c.ApplyEdit(folio.Edit{Page: pos.Page, Offset: pos.Offset, Removed: removed})
	})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	r.cmdPrint()
}

func (r *REPL) cmdUndoRedo(isUndo bool) {
	ok := false
	r.do(func(c *folio.Controller) { ok = c.TryUndoRedo(isUndo) })
	if !ok {
		fmt.Println("Nothing to do, or busy")
		return
	}
	r.settle()
	r.cmdPrint()
}

func (r *REPL) cmdShow(args []string) {
	if len(args) < 4 {
		fmt.Println("Usage: show <page> <offset> <page> <offset>")
		return
	}
	start, err := parseSymbol(args[0:2])
	if err != nil {
		fmt.Println(err)
		return
	}
	end, err := parseSymbol(args[2:4])
	if err != nil {
		fmt.Println(err)
		return
	}

	ok := false
	r.do(func(c *folio.Controller) { ok = c.ShowSearchResult(start, end) })
	if !ok {
		fmt.Println("Busy; try again")
		return
	}
	r.settle()
	r.cmdPrint()
	if s, e, ok := r.sink.Selection(); ok {
		fmt.Printf("Selected %v - %v\n", s, e)
	}
}

func (r *REPL) cmdSave() {
	ok := false
	r.do(func(c *folio.Controller) { ok = c.TrySave() })
	if !ok {
		fmt.Println("Cannot save right now")
		return
	}
	fmt.Println("Saving...")
}

func (r *REPL) cmdCancel() {
	ok := false
	r.do(func(c *folio.Controller) { ok = c.CancelSave() })
	if !ok {
		fmt.Println("No save in progress")
	}
}

func (r *REPL) cmdEncoding(args []string) {
	if len(args) < 1 {
		fmt.Printf("Encoding: %s\n", r.source.Charset().Name())
		return
	}

	var ok bool
	var err error
	r.do(func(c *folio.Controller) { ok, err = c.TryChangeEncoding(args[0]) })
	switch {
	case err != nil:
		fmt.Printf("Error: %v\n", err)
	case !ok:
		fmt.Println("Busy; try again")
	default:
		r.settle()
		fmt.Printf("Encoding: %s\n", r.source.Charset().Name())
		r.cmdPrint()
	}
}

func (r *REPL) cmdWindow() {
	r.do(func(c *folio.Controller) {
		fmt.Printf("Window:  %v\n", c.Window())
		fmt.Printf("Cached:  %v\n", c.Cached())
		fmt.Printf("Pending: %v\n", c.Pending())
	})
}

func (r *REPL) cmdStats() {
	r.do(func(c *folio.Controller) {
		s := c.Stats()
		fmt.Printf("Materialized: %d pages, %d bytes\n", s.MaterializedPages, s.MaterializedBytes)
		fmt.Printf("Cached:       %d pages, %d bytes\n", s.CachedPages, s.CachedBytes)
		fmt.Printf("Pending:      %d reads\n", s.PendingReads)
		fmt.Printf("Dirty:        %d pages\n", s.DirtyPages)
		fmt.Printf("Reads:        %d (cache hits %d)\n", s.Reads, s.CacheHits)
		fmt.Printf("Evictions:    %d, resets %d, generation %d\n", s.Evictions, s.Resets, s.Generation)
	})
}

func (r *REPL) cmdWatch(args []string) {
	secs := 2.0
	if len(args) > 0 {
		v, err := strconv.ParseFloat(args[0], 64)
		if err != nil || v <= 0 {
			fmt.Printf("Invalid interval: %s\n", args[0])
			return
		}
		secs = v
	}
	r.do(func(c *folio.Controller) {
		c.WatchSource(time.Duration(secs * float64(time.Second)))
	})
	fmt.Printf("Watching every %.1fs\n", secs)
}

func (r *REPL) cmdReload() {
	var err error
	r.do(func(c *folio.Controller) { err = c.Reload() })
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	r.settle()
	r.cmdPrint()
}
