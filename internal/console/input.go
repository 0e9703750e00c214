package console

import (
	"bufio"
	"context"
	"io"
	"strings"
)

// CommandKind tags a parsed input line.
type CommandKind int

const (
	CommandNone CommandKind = iota
	CommandSend
	CommandClear
	CommandLogout
	CommandQuit
	CommandStatus
	CommandHelp
	CommandUnknown
)

// Command is one parsed input line.
type Command struct {
	Kind CommandKind
	Text string // Frame to send (CommandSend) or the unknown command name
}

// HelpText lists the local commands.
const HelpText = `/clear   clear the device log and the local view
/logout  close the connection and end the device's web session
/status  show heartbeat state and counters
/quit    close the connection and exit
/help    list commands
//text   send "/text" to the device`

// ParseInput classifies a typed line. Whitespace-only lines are ignored;
// anything else that is not a local command is sent as typed.
func ParseInput(line string) Command {
	if strings.TrimSpace(line) == "" {
		return Command{Kind: CommandNone}
	}
	if strings.HasPrefix(line, "//") {
		return Command{Kind: CommandSend, Text: line[1:]}
	}
	if !strings.HasPrefix(line, "/") {
		return Command{Kind: CommandSend, Text: line}
	}

	fields := strings.Fields(line[1:])
	if len(fields) == 0 {
		return Command{Kind: CommandUnknown}
	}
	name := strings.ToLower(fields[0])
	switch name {
	case "clear":
		return Command{Kind: CommandClear}
	case "logout":
		return Command{Kind: CommandLogout}
	case "quit", "exit":
		return Command{Kind: CommandQuit}
	case "status":
		return Command{Kind: CommandStatus}
	case "help", "?":
		return Command{Kind: CommandHelp}
	default:
		return Command{Kind: CommandUnknown, Text: name}
	}
}

// ReadLines scans r line by line until EOF or ctx is done. The channel is
// closed when reading stops. Trailing carriage returns are removed.
func ReadLines(ctx context.Context, r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			line := strings.TrimSuffix(scanner.Text(), "\r")
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}
