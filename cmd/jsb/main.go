// Command jsb is an interactive shell for the jsbridge interop layer: a
// QuickJS-ng REPL with a set of Go-backed host functions installed through
// the bridge.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/chzyer/readline"
	"go.uber.org/zap"

	"github.com/jsbridge-dev/jsbridge"
	"github.com/jsbridge-dev/jsbridge/interop"
)

const version = "0.1.0"

// Styles
var (
	primaryColor = lipgloss.Color("#0EA5E9")
	accentColor  = lipgloss.Color("#22C55E")
	errorColor   = lipgloss.Color("#EF4444")
	warningColor = lipgloss.Color("#F59E0B")
	dimColor     = lipgloss.Color("#6B7280")

	logoStyle         = lipgloss.NewStyle().Foreground(primaryColor).Bold(true)
	promptStyle       = lipgloss.NewStyle().Foreground(primaryColor).Bold(true)
	continuationStyle = lipgloss.NewStyle().Foreground(dimColor)
	errorStyle        = lipgloss.NewStyle().Foreground(errorColor).Bold(true)
	errorMsgStyle     = lipgloss.NewStyle().Foreground(errorColor)
	successStyle      = lipgloss.NewStyle().Foreground(accentColor)
	dimStyle          = lipgloss.NewStyle().Foreground(dimColor)
	cmdStyle          = lipgloss.NewStyle().Foreground(warningColor)
	titleStyle        = lipgloss.NewStyle().Foreground(primaryColor).Bold(true).Underline(true)
	stringStyle       = lipgloss.NewStyle().Foreground(accentColor)
	numberStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6"))
	boolStyle         = lipgloss.NewStyle().Foreground(warningColor)
	nullStyle         = lipgloss.NewStyle().Foreground(dimColor)
)

// Syntax highlighter
var (
	jsLexer     chroma.Lexer
	chromaStyle *chroma.Style
	formatter   chroma.Formatter
)

func initSyntaxHighlighter() {
	jsLexer = lexers.Get("javascript")
	if jsLexer == nil {
		jsLexer = lexers.Fallback
	}
	jsLexer = chroma.Coalesce(jsLexer)
	chromaStyle = styles.Get("monokai")
	if chromaStyle == nil {
		chromaStyle = styles.Fallback
	}
	formatter = formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}
}

func highlightCode(code string) string {
	if jsLexer == nil {
		return code
	}
	var buf bytes.Buffer
	iterator, err := jsLexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	if err := formatter.Format(&buf, chromaStyle, iterator); err != nil {
		return code
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

type shell struct {
	rt     *jsbridge.Runtime
	ctx    *jsbridge.Context
	bridge *interop.Bridge
	// hostFns pins the host-namespace callbacks; adapters are memoized
	// weakly and unbind if the callbacks are collected.
	hostFns     []*interop.Callback
	log         *zap.Logger
	rl          *readline.Instance
	showTiming  bool
	evalCount   int
	multiline   strings.Builder
	inMultiline bool
	startTime   time.Time
}

func main() {
	os.Exit(run())
}

func run() int {
	evalCode := flag.String("e", "", "evaluate code and exit")
	showVersion := flag.Bool("version", false, "show version")
	timing := flag.Bool("timing", false, "show execution time")
	debug := flag.Bool("debug", false, "log bridge activity")
	flag.Parse()

	initSyntaxHighlighter()

	if *showVersion {
		printVersion()
		return 0
	}

	log := zap.NewNop()
	if *debug {
		dev, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Render("Error:")+" failed to create logger:", err)
			return 1
		}
		log = dev
	}
	defer log.Sync()

	rt, err := jsbridge.NewRuntime()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error:")+" failed to create runtime:", err)
		return 1
	}
	defer rt.Close()

	ctx, err := rt.NewContext()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error:")+" failed to create context:", err)
		return 1
	}
	defer ctx.Close()

	s := &shell{
		rt:         rt,
		ctx:        ctx,
		log:        log,
		showTiming: *timing,
		startTime:  time.Now(),
	}
	if err := s.installBridge(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error:")+" failed to install bridge:", err)
		return 1
	}

	if *evalCode != "" {
		result, duration, err := s.eval(*evalCode)
		if err != nil {
			printError(err)
			return 1
		}
		if !result.IsUndefined() {
			printValue(result)
		}
		if s.showTiming {
			printTiming(duration)
		}
		return 0
	}

	if files := flag.Args(); len(files) > 0 {
		for _, filename := range files {
			if err := s.runFile(filename); err != nil {
				printError(err)
				return 1
			}
		}
		return 0
	}

	s.runREPL()
	return 0
}

// installBridge creates the interop bridge and publishes a "host" namespace
// of Go-backed functions, converted through the bridge's own machinery.
func (s *shell) installBridge() error {
	b, err := interop.New(s.ctx, interop.WithLogger(s.log))
	if err != nil {
		return err
	}
	s.bridge = b

	ns := map[string]any{
		"version": interop.NewCallback(func(args []any) (any, error) {
			return runtime.Version(), nil
		}, interop.WithName("version")),
		"now": interop.NewCallback(func(args []any) (any, error) {
			return time.Now(), nil
		}, interop.WithName("now")),
		"env": interop.NewCallback(func(args []any) (any, error) {
			name, ok := args[0].(string)
			if !ok {
				return nil, fmt.Errorf("env: expected a variable name")
			}
			return os.Getenv(name), nil
		}, interop.WithName("env"), interop.WithArity(1)),
		"readFile": interop.NewCallback(func(args []any) (any, error) {
			path, ok := args[0].(string)
			if !ok {
				return nil, fmt.Errorf("readFile: expected a path")
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, err
			}
			return string(data), nil
		}, interop.WithName("readFile"), interop.WithArity(1)),
	}
	s.hostFns = s.hostFns[:0]
	for _, cb := range ns {
		s.hostFns = append(s.hostFns, cb.(*interop.Callback))
	}

	hostObj, err := b.Jsify(ns)
	if err != nil {
		return err
	}
	return s.ctx.SetGlobal("host", hostObj)
}

func printVersion() {
	fmt.Println(logoStyle.Render("jsb") + dimStyle.Render(" v"+version))
	fmt.Println(dimStyle.Render("Go/JavaScript interop shell powered by QuickJS-ng + WebAssembly"))
	fmt.Println(dimStyle.Render(fmt.Sprintf("Go %s, %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)))
}

func (s *shell) runFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filename, err)
	}

	start := time.Now()
	_, err = s.ctx.EvalFile(string(data), filename)
	duration := time.Since(start)

	if err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}
	if s.showTiming {
		printTiming(duration)
	}
	return nil
}

func (s *shell) eval(code string) (jsbridge.Value, time.Duration, error) {
	start := time.Now()
	result, err := s.ctx.Eval(code)
	duration := time.Since(start)
	return result, duration, err
}

func (s *shell) runREPL() {
	historyFile := ""
	if home, err := os.UserHomeDir(); err == nil {
		historyFile = filepath.Join(home, ".jsb_history")
	}

	completions := []string{
		"var", "let", "const", "function", "return", "if", "else", "for", "while",
		"switch", "case", "break", "continue", "try", "catch", "finally", "throw",
		"new", "delete", "typeof", "instanceof", "this", "true", "false", "null",
		"undefined", "class", "extends", "async", "await", "import", "export",
		"console", "Math", "JSON", "Object", "Array", "String", "Number",
		"Date", "RegExp", "Error", "Promise", "Map", "Set", "WeakMap", "WeakSet",
		"Symbol", "Proxy", "Reflect", "BigInt", "ArrayBuffer",
		"host", "host.version", "host.now", "host.env", "host.readFile",
		"JSON.parse", "JSON.stringify",
		"Object.keys", "Object.values", "Object.entries",
		"Array.isArray", "Array.from",
		".help", ".exit", ".clear", ".timing", ".load", ".info", ".gc",
		".reset", ".history",
	}

	completer := readline.NewPrefixCompleter()
	for _, item := range completions {
		completer.Children = append(completer.Children, readline.PcItem(item))
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            s.getPrompt(false),
		HistoryFile:       historyFile,
		HistoryLimit:      1000,
		AutoComplete:      completer,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error:")+" failed to initialize readline:", err)
		os.Exit(1)
	}
	defer rl.Close()
	s.rl = rl

	printBanner()

	for {
		rl.SetPrompt(s.getPrompt(s.inMultiline))

		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				if s.inMultiline {
					s.multiline.Reset()
					s.inMultiline = false
					fmt.Println()
				}
				continue
			}
			if err == io.EOF {
				fmt.Println()
				break
			}
			continue
		}

		if !s.inMultiline && strings.HasPrefix(line, ".") {
			s.handleCommand(line)
			continue
		}

		if s.inMultiline {
			if line == "" {
				code := s.multiline.String()
				s.multiline.Reset()
				s.inMultiline = false
				s.evalAndPrint(code)
			} else {
				s.multiline.WriteString(line)
				s.multiline.WriteString("\n")
			}
			continue
		}

		if line == "exit" || line == "quit" {
			break
		}

		if strings.HasSuffix(line, "\\") {
			s.multiline.WriteString(strings.TrimSuffix(line, "\\"))
			s.multiline.WriteString("\n")
			s.inMultiline = true
			continue
		}

		if needsContinuation(line) {
			s.multiline.WriteString(line)
			s.multiline.WriteString("\n")
			s.inMultiline = true
			continue
		}

		s.evalAndPrint(line)
	}
}

func (s *shell) getPrompt(continuation bool) string {
	if continuation {
		return continuationStyle.Render("... ")
	}
	return promptStyle.Render("jsb") + dimStyle.Render(" > ")
}

func printBanner() {
	fmt.Println()
	fmt.Println(logoStyle.Render("  jsb") + dimStyle.Render("  Go/JavaScript interop shell v"+version))
	fmt.Println(dimStyle.Render("  Go functions live under ") + cmdStyle.Render("host") + dimStyle.Render(", e.g. ") + cmdStyle.Render("host.now()"))
	fmt.Println(dimStyle.Render("  Type ") + cmdStyle.Render(".help") + dimStyle.Render(" for commands"))
	fmt.Println()
}

func (s *shell) handleCommand(line string) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return
	}

	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case ".help", ".h", ".?":
		s.cmdHelp()
	case ".exit", ".quit", ".q":
		os.Exit(0)
	case ".clear", ".cls":
		fmt.Print("\033[H\033[2J")
	case ".history":
		s.cmdHistory(args)
	case ".timing", ".time":
		s.showTiming = !s.showTiming
		if s.showTiming {
			fmt.Println(successStyle.Render("✓") + " Timing enabled")
		} else {
			fmt.Println(dimStyle.Render("○ Timing disabled"))
		}
	case ".load", ".l":
		s.cmdLoad(args)
	case ".info", ".i":
		s.cmdInfo()
	case ".gc":
		s.cmdGC()
	case ".reset":
		s.cmdReset()
	default:
		fmt.Println(errorStyle.Render("Unknown command:") + " " + cmd)
		fmt.Println(dimStyle.Render("Type .help for available commands"))
	}
}

func (s *shell) cmdHelp() {
	fmt.Println()
	fmt.Println(titleStyle.Render("Commands"))
	fmt.Println()

	cmds := []struct{ cmd, desc string }{
		{".help", "Show this help message"},
		{".exit", "Exit the shell"},
		{".clear", "Clear the screen"},
		{".history [n]", "Show last n inputs (default: 20)"},
		{".timing", "Toggle execution timing"},
		{".load <file>", "Load and execute a JavaScript file"},
		{".info", "Show runtime information"},
		{".gc", "Collect garbage on both sides of the bridge"},
		{".reset", "Reset the context and bridge"},
	}
	for _, c := range cmds {
		fmt.Printf("  %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-14s", c.cmd)), dimStyle.Render(c.desc))
	}

	fmt.Println()
	fmt.Println(titleStyle.Render("Host Functions"))
	fmt.Println()
	fns := []struct{ sig, desc string }{
		{"host.version()", "Go runtime version"},
		{"host.now()", "Current time as a Date"},
		{"host.env(name)", "Environment variable lookup"},
		{"host.readFile(path)", "File contents as a string"},
	}
	for _, f := range fns {
		fmt.Printf("  %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-20s", f.sig)), dimStyle.Render(f.desc))
	}
	fmt.Println()
}

func (s *shell) cmdHistory(args []string) {
	n := 20
	if len(args) > 0 {
		if parsed, err := strconv.Atoi(args[0]); err == nil && parsed > 0 {
			n = parsed
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	data, err := os.ReadFile(filepath.Join(home, ".jsb_history"))
	if err != nil {
		fmt.Println(dimStyle.Render("No history"))
		return
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	start := 0
	if len(lines) > n {
		start = len(lines) - n
	}
	fmt.Println()
	for i, line := range lines[start:] {
		fmt.Printf("  %s  %s\n", dimStyle.Render(fmt.Sprintf("%4d", start+i+1)), highlightCode(line))
	}
	fmt.Println()
}

func (s *shell) cmdLoad(args []string) {
	if len(args) == 0 {
		fmt.Println(errorStyle.Render("Usage:") + " .load <filename>")
		return
	}
	if err := s.runFile(args[0]); err != nil {
		printError(err)
	} else {
		fmt.Println(successStyle.Render("✓") + " Loaded " + args[0])
	}
}

func (s *shell) cmdInfo() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	fmt.Println()
	fmt.Println(titleStyle.Render("Runtime Information"))
	fmt.Println()

	info := []struct{ label, value string }{
		{"Version", version},
		{"Engine", "QuickJS-ng (ES2023+)"},
		{"Go Version", runtime.Version()},
		{"OS/Arch", fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)},
		{"Go Heap", fmt.Sprintf("%.2f MB", float64(memStats.HeapAlloc)/1024/1024)},
		{"Evaluations", fmt.Sprintf("%d", s.evalCount)},
		{"Uptime", time.Since(s.startTime).Round(time.Second).String()},
	}
	for _, i := range info {
		fmt.Printf("  %s  %s\n", dimStyle.Render(fmt.Sprintf("%-14s", i.label)), i.value)
	}
	fmt.Println()
}

// cmdGC collects on both heaps: the engine's collector frees unreferenced
// JavaScript values (including dead holder objects, which in turn release
// their Go anchors), and Go's collector lets proxy finalizers run.
func (s *shell) cmdGC() {
	start := time.Now()
	if err := s.rt.RunGC(); err != nil {
		printError(err)
		return
	}
	runtime.GC()
	fmt.Println(successStyle.Render("✓") + fmt.Sprintf(" GC completed in %v", time.Since(start)))
}

func (s *shell) cmdReset() {
	s.ctx.Close()

	ctx, err := s.rt.NewContext()
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	s.ctx = ctx
	s.evalCount = 0

	if err := s.installBridge(); err != nil {
		printError(err)
		os.Exit(1)
	}
	runtime.GC()

	fmt.Println(successStyle.Render("✓") + " Context reset")
}

func (s *shell) evalAndPrint(code string) {
	code = strings.TrimSpace(code)
	if code == "" {
		return
	}
	s.evalCount++

	result, duration, err := s.eval(code)
	if err != nil {
		printError(err)
		return
	}
	if !result.IsUndefined() {
		printValue(result)
	}
	if s.showTiming {
		printTiming(duration)
	}
}

func formatResult(v jsbridge.Value) string {
	str := v.String()
	switch {
	case v.IsNull():
		return nullStyle.Render(str)
	case v.IsBool():
		return boolStyle.Render(str)
	case v.IsNumber():
		return numberStyle.Render(str)
	case v.IsString():
		return stringStyle.Render("\"" + str + "\"")
	case v.IsFunction():
		return dimStyle.Render("[Function]")
	case v.IsError():
		return errorStyle.Render(str)
	case v.IsBigInt():
		return numberStyle.Render(str + "n")
	case v.IsSymbol():
		return dimStyle.Render(str)
	default:
		return str
	}
}

func printValue(v jsbridge.Value) {
	fmt.Println(formatResult(v))
}

func printError(err error) {
	fmt.Println(errorStyle.Render("Error: ") + errorMsgStyle.Render(err.Error()))
}

func printTiming(duration time.Duration) {
	var style lipgloss.Style
	switch {
	case duration < 10*time.Millisecond:
		style = successStyle
	case duration < 100*time.Millisecond:
		style = lipgloss.NewStyle().Foreground(warningColor)
	default:
		style = errorStyle
	}
	fmt.Println(style.Render(fmt.Sprintf("⏱  %v", duration)))
}

// needsContinuation reports whether a line has unbalanced brackets or an
// unterminated string, which starts multiline input.
func needsContinuation(line string) bool {
	opens := 0
	inString := false
	var stringChar byte

	for i := 0; i < len(line); i++ {
		ch := line[i]
		if inString {
			if ch == stringChar && (i == 0 || line[i-1] != '\\') {
				inString = false
			}
			continue
		}
		switch ch {
		case '"', '\'', '`':
			inString = true
			stringChar = ch
		case '{', '(', '[':
			opens++
		case '}', ')', ']':
			opens--
		}
	}
	return opens > 0 || inString
}
