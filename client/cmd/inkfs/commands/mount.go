package commands

import (
	"context"
	"fmt"
	"os/signal"
	"os/user"
	"strconv"
	"syscall"
	"time"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseutil"
	"github.com/spf13/cobra"

	"github.com/inkfs/inkfs/client/internal/fsadapter"
	"github.com/inkfs/inkfs/client/internal/metacache"
	"github.com/inkfs/inkfs/client/internal/remoteclient"
	"github.com/inkfs/inkfs/internal/logger"
)

var (
	serverURL  string
	foreground bool
	logLevel   string
)

var mountCmd = &cobra.Command{
	Use:   "mount <mountpoint>",
	Short: "Mount the remote inkfs tree at the given directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runMount,
}

func init() {
	mountCmd.Flags().StringVar(&serverURL, "server", "http://127.0.0.1:3000", "inkfs server base URL")
	mountCmd.Flags().BoolVar(&foreground, "foreground", false, "has no effect: mount always stays attached to the terminal")
	mountCmd.Flags().StringVar(&logLevel, "log-level", "INFO", "DEBUG, INFO, WARN, or ERROR")
}

func runMount(cmd *cobra.Command, args []string) error {
	mountPoint := args[0]

	if err := logger.Init(logger.Config{Level: logLevel, Format: "text", Output: "stderr"}); err != nil {
		return fmt.Errorf("configure logger: %w", err)
	}

	uid, gid, err := currentOwner()
	if err != nil {
		return fmt.Errorf("resolve mounting user: %w", err)
	}

	remote := remoteclient.New(serverURL, 30*time.Second)
	cache := metacache.New(remote)
	fs := fsadapter.New(cache, uid, gid)

	server := fuseutil.NewFileSystemServer(fs)

	cfg := &fuse.MountConfig{
		FSName:                  "inkfs",
		DisableWritebackCaching: true,
	}
	if !foreground {
		cfg.ErrorLogger = nil
	}

	mfs, err := fuse.Mount(mountPoint, server, cfg)
	if err != nil {
		return fmt.Errorf("mount %s: %w", mountPoint, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		logger.Info("unmounting", "mount_point", mountPoint)
		if err := mfs.Unmount(); err != nil {
			logger.Error("unmount failed", "mount_point", mountPoint, "error", err)
		}
	}()

	logger.Info("mounted", "mount_point", mountPoint, "server", serverURL)
	if err := mfs.Join(context.Background()); err != nil {
		return fmt.Errorf("serve %s: %w", mountPoint, err)
	}
	return nil
}

func currentOwner() (uid, gid uint32, err error) {
	u, err := user.Current()
	if err != nil {
		return 0, 0, err
	}

	uid64, err := strconv.ParseUint(u.Uid, 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("parse uid %q: %w", u.Uid, err)
	}
	gid64, err := strconv.ParseUint(u.Gid, 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("parse gid %q: %w", u.Gid, err)
	}
	return uint32(uid64), uint32(gid64), nil
}
