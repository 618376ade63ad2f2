package commands

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/joseph-ayodele/techtime/internal/backup"
)

func backupCommand() *cli.Command {
	return &cli.Command{
		Name:  "backup",
		Usage: "Export, restore and share backups",
		Commands: []*cli.Command{
			{
				Name:   "create",
				Usage:  "Write JSON, PDF, HTML and XLSX backups to the backup folder",
				Action: withApp(BackupCreateAction),
			},
			{
				Name:  "import",
				Usage: "Restore a backup (newest in the backup folder unless --file is given)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Usage: "backup JSON to restore"},
				},
				Action: withApp(BackupImportAction),
			},
			{
				Name:   "share",
				Usage:  "Send the newest backup to the share target",
				Action: withApp(BackupShareAction),
			},
			{
				Name:  "folder",
				Usage: "Show or change the backup folder",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "set", Usage: "folder to save backups in"},
				},
				Action: withApp(BackupFolderAction),
			},
		},
	}
}

func BackupCreateAction(ctx context.Context, cmd *cli.Command, app *AppContext) error {
	return report(cmd, app.Backup.CreateLocalBackup(ctx))
}

func BackupImportAction(ctx context.Context, cmd *cli.Command, app *AppContext) error {
	var res backup.Result
	if f := cmd.String("file"); f != "" {
		res = app.Backup.ImportFromFile(ctx, f)
	} else {
		res = app.Backup.ImportLocalBackup(ctx)
	}
	if err := report(cmd, res); err != nil {
		return err
	}
	if len(res.Dropped) > 0 {
		printf(cmd, "Adjusted while importing: %v\n", res.Dropped)
	}
	printf(cmd, "You have been logged out; log in again with your PIN.\n")
	return nil
}

func BackupShareAction(ctx context.Context, cmd *cli.Command, app *AppContext) error {
	return report(cmd, app.Backup.ShareBackup(ctx))
}

func BackupFolderAction(ctx context.Context, cmd *cli.Command, app *AppContext) error {
	if p := cmd.String("set"); p != "" {
		return report(cmd, app.Backup.SetBackupFolder(ctx, p))
	}
	dir, granted, err := app.Backup.BackupFolder(ctx)
	if err != nil {
		return err
	}
	if granted {
		printf(cmd, "Backup folder: %s\n", dir)
	} else {
		printf(cmd, "Backup folder: %s (default)\n", dir)
	}
	return nil
}
