package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

// Command completer for readline
var completer = readline.NewPrefixCompleter(
	readline.PcItem("help"),
	readline.PcItem("print"),
	readline.PcItem("get"),
	readline.PcItem("put_int"),
	readline.PcItem("put_bool"),
	readline.PcItem("put_string"),
	readline.PcItem("save"),
	readline.PcItem("erase"),
	readline.PcItem(".stats"),
	readline.PcItem(".exit"),
)

const shellHelpText = `
Available commands:
  help                    - Show available commands
  print                   - Show settings
  get KEY                 - Get a setting
  put_int KEY VALUE       - Set an integer setting
  put_bool KEY VALUE      - Set a boolean setting (true/false/t/f/1/0)
  put_string KEY VALUE    - Set a string setting
  save                    - Save settings to the image
  erase                   - Erase the settings region
  .stats                  - Show store statistics
  .exit                   - Exit the shell

Puts edit the in-memory table; run save to persist them.
`

func newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive settings shell",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			return runShell(s)
		},
	}
}

func runShell(s *session) error {
	fmt.Println("nvstore settings shell")
	fmt.Println("Type 'help' for a list of commands.")

	historyFile := filepath.Join(os.TempDir(), ".nvstore_history")
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          fmt.Sprintf("nvstore:%s> ", filepath.Base(s.profile.Image)),
		HistoryFile:     historyFile,
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer rl.Close()

	for {
		line, readErr := rl.Readline()
		if readErr != nil {
			if errors.Is(readErr, readline.ErrInterrupt) {
				if len(line) == 0 {
					break
				}
				continue
			}
			if errors.Is(readErr, io.EOF) {
				fmt.Println("Goodbye!")
				break
			}
			fmt.Fprintf(os.Stderr, "Error reading input: %s\n", readErr)
			continue
		}

		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		if cmd == ".exit" {
			fmt.Println("Goodbye!")
			return nil
		}
		if err := dispatchShellCommand(s, cmd, args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
	}
	return nil
}

func dispatchShellCommand(s *session, cmd string, args []string) error {
	switch cmd {
	case "help":
		fmt.Print(shellHelpText)

	case "print":
		renderTable(os.Stdout, s.store.Entries())

	case "get":
		if len(args) != 1 {
			return fmt.Errorf("usage: get KEY")
		}
		entry, err := s.store.Find(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Key: %s, Value: %s\n", entry.Key, entry.Value)

	case "put_int":
		if len(args) != 2 {
			return fmt.Errorf("usage: put_int KEY VALUE")
		}
		value, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid integer value %q", args[1])
		}
		if err := s.store.PutInt(args[0], value); err != nil {
			return err
		}
		fmt.Printf("Key: %s, Value: %d\n", args[0], value)

	case "put_bool":
		if len(args) != 2 {
			return fmt.Errorf("usage: put_bool KEY VALUE")
		}
		value, err := parseBoolArg(args[1])
		if err != nil {
			return err
		}
		if err := s.store.PutBool(args[0], value); err != nil {
			return err
		}
		fmt.Printf("Key: %s, Value: %t\n", args[0], value)

	case "put_string":
		if len(args) < 1 {
			return fmt.Errorf("usage: put_string KEY VALUE")
		}
		value := strings.Join(args[1:], " ")
		if err := s.store.PutString(args[0], value); err != nil {
			return err
		}
		if value == "" {
			fmt.Printf("Key: %s, Value: <EMPTY>\n", args[0])
		} else {
			fmt.Printf("Key: %s, Value: %s\n", args[0], value)
		}

	case "save":
		if err := s.store.Save(true); err != nil {
			return err
		}
		fmt.Println("Settings saved.")

	case "erase":
		if err := s.store.Erase(); err != nil {
			return err
		}
		fmt.Println("Settings erased.")

	case ".stats":
		printStats(os.Stdout, s.stats.GetStats())

	default:
		return fmt.Errorf("unknown command %q: type 'help' for a list of commands", cmd)
	}
	return nil
}
