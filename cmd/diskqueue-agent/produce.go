package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yanet-platform/diskqueue/manager"
	"github.com/yanet-platform/diskqueue/queue"
)

func newProduceCmd() *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:   "produce",
		Short: "Push one or more messages onto the ring",
		Long:  "Push a message given with --message, or one message per line of stdin if --message is omitted.",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runProduce(message)
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "Message to push (reads stdin line-by-line if omitted)")
	return cmd
}

func runProduce(message string) error {
	config, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	mgr, err := manager.New(config.Directory, config.Params(), manager.WithLogger(log))
	if err != nil {
		return fmt.Errorf("produce: open ring %s: %w", config.Directory, err)
	}
	defer mgr.Close()

	sender, err := queue.NewSender(mgr)
	if err != nil {
		return fmt.Errorf("produce: new sender: %w", err)
	}

	if message != "" {
		if err := sender.Push([]byte(message)); err != nil {
			return fmt.Errorf("produce: push: %w", err)
		}
		return nil
	}

	scanner := bufio.NewScanner(os.Stdin)
	count := 0
	for scanner.Scan() {
		if err := sender.Push(scanner.Bytes()); err != nil {
			return fmt.Errorf("produce: push line %d: %w", count+1, err)
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("produce: read stdin: %w", err)
	}
	log.Infow("pushed messages", "count", count)
	return nil
}
