package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/yanet-platform/diskqueue/manager"
	"github.com/yanet-platform/diskqueue/queue"
)

// consumedMessage is the NDJSON record emitted per popped message when
// stdout isn't a terminal (log aggregators, pipes into jq, etc).
type consumedMessage struct {
	Sequence int    `json:"sequence"`
	Bytes    int    `json:"bytes"`
	Data     string `json:"data"`
}

func newConsumeCmd() *cobra.Command {
	var (
		group   string
		count   int
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "consume",
		Short: "Pop messages from the ring and print them",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runConsume(group, count, timeout)
		},
	}
	cmd.Flags().StringVarP(&group, "group", "g", "", "Grouped-receiver group name (anonymous receiver if omitted)")
	cmd.Flags().IntVarP(&count, "count", "n", 0, "Number of messages to pop (0 = run until interrupted)")
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 0, "Per-message pop timeout (grouped receivers only; 0 = block forever)")
	return cmd
}

// receiver is the shape both queue.GroupedReceiver and
// queue.AnonymousReceiver present to runConsume.
type receiver interface {
	Pop() ([]byte, error)
}

func runConsume(group string, count int, timeout time.Duration) error {
	config, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	mgr, err := manager.New(config.Directory, config.Params(), manager.WithLogger(log))
	if err != nil {
		return fmt.Errorf("consume: open ring %s: %w", config.Directory, err)
	}
	defer mgr.Close()

	var rx receiver
	var grouped *queue.GroupedReceiver
	if group != "" {
		idx, ok := config.GroupIndex(group)
		if !ok {
			return fmt.Errorf("consume: unknown group %q", group)
		}
		grouped, err = queue.NewGroupedReceiver(idx, mgr)
		if err != nil {
			return fmt.Errorf("consume: new grouped receiver: %w", err)
		}
		rx = grouped
	} else {
		rx, err = queue.NewAnonymousReceiver(mgr)
		if err != nil {
			return fmt.Errorf("consume: new anonymous receiver: %w", err)
		}
	}

	interactive := term.IsTerminal(int(os.Stdout.Fd()))
	enc := json.NewEncoder(os.Stdout)

	for i := 0; count == 0 || i < count; i++ {
		var data []byte
		if grouped != nil && timeout > 0 {
			data, err = grouped.PopWithTimeout(timeout)
			if err != nil {
				return fmt.Errorf("consume: pop: %w", err)
			}
			if data == nil {
				log.Debugw("pop timed out, skipping", "index", i)
				continue
			}
		} else {
			data, err = rx.Pop()
			if err != nil {
				return fmt.Errorf("consume: pop: %w", err)
			}
		}

		if interactive {
			fmt.Printf("#%d (%d bytes): %s\n", i, len(data), data)
			continue
		}
		if err := enc.Encode(consumedMessage{Sequence: i, Bytes: len(data), Data: string(data)}); err != nil {
			return fmt.Errorf("consume: encode message %d: %w", i, err)
		}
	}

	return nil
}
