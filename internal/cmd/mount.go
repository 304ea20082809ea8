package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jra3/orgfs/internal/config"
	"github.com/jra3/orgfs/internal/fs"
	"github.com/jra3/orgfs/internal/orgmodel"
	"github.com/jra3/orgfs/internal/poller"
	"github.com/jra3/orgfs/internal/reconciler"
	"github.com/jra3/orgfs/internal/remote"
	"github.com/spf13/cobra"
)

var mountCmd = &cobra.Command{
	Use:   "mount [mountpoint]",
	Short: "Mount the calendar and task filesystem",
	Long:  `Mount your calendars and task lists at the specified mountpoint, one positional argument per spec.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runMount,
}

func init() {
	rootCmd.AddCommand(mountCmd)
	mountCmd.Flags().BoolP("foreground", "f", false, "run in foreground (don't daemonize)")
}

// commandQueueDepth bounds the write-command channel: upcalls enqueue and
// return immediately, so a depth a few syncs deep is enough to absorb a
// burst of fsyncs without blocking an editor's save.
const commandQueueDepth = 64

func runMount(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	mountpoint := cfg.Mount.DefaultPath
	if len(args) > 0 {
		mountpoint = args[0]
	}
	if mountpoint == "" {
		return fmt.Errorf("mountpoint required: orgfs mount /path/to/mount")
	}

	if err := os.MkdirAll(mountpoint, 0755); err != nil {
		return fmt.Errorf("failed to create mountpoint: %w", err)
	}

	debug, _ := cmd.Flags().GetBool("debug")
	if d, _ := cmd.Root().PersistentFlags().GetBool("debug"); d {
		debug = true
	}

	// The concrete REST transport is out of scope per spec §1 ("abstracted
	// as a RemoteClient trait"); this entrypoint wires against whatever
	// remote.Client is configured. No out-of-scope transport ships here,
	// so the in-memory Fake stands in until a real client is substituted.
	client := remote.NewFake()

	ctx := context.Background()
	calendars, err := client.ListCalendars(ctx)
	if err != nil {
		return fmt.Errorf("failed to list calendars: %w", err)
	}
	taskLists, err := client.ListTaskLists(ctx)
	if err != nil {
		return fmt.Errorf("failed to list task lists: %w", err)
	}

	commands := make(chan reconciler.Command, commandQueueDepth)
	ofs := fs.New(calendars, taskLists, commands)

	rec := reconciler.New(client, ofs.Calendars, ofs.TaskLists, ofs)
	rec.TouchDelay = cfg.Sync.TouchDelay

	calendarIDs := parentIDs(calendars)
	taskListIDs := parentIDs(taskLists)
	p := poller.New(commands, calendarIDs, taskListIDs)
	p.Interval = cfg.Sync.PollInterval

	syncCtx, cancelSync := context.WithCancel(ctx)
	go rec.Run(syncCtx, commands)
	go p.Run(syncCtx)

	fmt.Printf("Mounting org filesystem at %s\n", mountpoint)
	server, err := fs.Mount(mountpoint, ofs, debug)
	if err != nil {
		cancelSync()
		return fmt.Errorf("failed to mount: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		for sig := range sigChan {
			switch sig {
			case syscall.SIGHUP:
				p.Kick()
			case syscall.SIGINT, syscall.SIGTERM:
				fmt.Println("\nUnmounting...")
				server.Unmount()
				return
			}
		}
	}()

	fmt.Println("Filesystem mounted. Press Ctrl+C to unmount.")
	server.Wait()
	cancelSync()

	return nil
}

func parentIDs(parents []orgmodel.ParentDescriptor) []string {
	ids := make([]string, len(parents))
	for i, p := range parents {
		ids[i] = p.ID
	}
	return ids
}
