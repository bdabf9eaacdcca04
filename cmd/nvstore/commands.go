package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/spf13/cobra"
)

func newPrintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "print",
		Short: "Show all settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			renderTable(cmd.OutOrStdout(), s.store.Entries())
			return nil
		},
	}
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get KEY",
		Short: "Get a setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			entry, err := s.store.Find(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Key: %s, Value: %s\n", entry.Key, entry.Value)
			return nil
		},
	}
}

// putAndSave opens the store, applies put, and persists the result.
func putAndSave(cmd *cobra.Command, key string, put func(*session) error) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := put(s); err != nil {
		return err
	}
	if err := s.store.Save(true); err != nil {
		return err
	}

	entry, err := s.store.Find(key)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Key: %s, Value: %s\n", entry.Key, entry.Value)
	return nil
}

func newPutIntCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put-int KEY VALUE",
		Short: "Set an integer setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid integer value %q", args[1])
			}
			return putAndSave(cmd, args[0], func(s *session) error {
				return s.store.PutInt(args[0], value)
			})
		},
	}
}

func newPutBoolCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put-bool KEY VALUE",
		Short: "Set a boolean setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseBoolArg(args[1])
			if err != nil {
				return err
			}
			return putAndSave(cmd, args[0], func(s *session) error {
				return s.store.PutBool(args[0], value)
			})
		},
	}
}

func newPutStringCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put-string KEY VALUE",
		Short: "Set a string setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return putAndSave(cmd, args[0], func(s *session) error {
				return s.store.PutString(args[0], args[1])
			})
		},
	}
}

func newSaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Persist the current settings to the image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.store.Save(true); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Settings saved.")
			return nil
		},
	}
}

func newEraseCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "erase",
		Short: "Erase the settings region",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return fmt.Errorf("erase discards all persisted settings; pass --force to confirm")
			}
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.store.Erase(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Settings erased.")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "confirm erasing the region")
	return cmd
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show store statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			printStats(cmd.OutOrStdout(), s.stats.GetStats())
			return nil
		},
	}
}

func printStats(w io.Writer, all map[string]interface{}) {
	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s: %v\n", k, all[k])
	}
}
