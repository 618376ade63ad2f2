package commands

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/joseph-ayodele/techtime/internal/settings"
)

func settingsCommand() *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Targets, theme, PIN and technician name",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show current settings",
				Action: withApp(SettingsShowAction),
			},
			{
				Name:  "set",
				Usage: "Change targets or theme",
				Flags: []cli.Flag{
					&cli.FloatFlag{Name: "target", Usage: "target hours per month"},
					&cli.FloatFlag{Name: "absence", Usage: "absence hours this month"},
					&cli.StringFlag{Name: "theme", Usage: "light, dark or system"},
				},
				Action: withApp(SettingsSetAction),
			},
			{
				Name:  "pin",
				Usage: "Set the PIN (4 to 6 digits); an empty PIN removes it",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "pin", Usage: "new PIN"},
				},
				Action: withApp(SettingsPINAction),
			},
			{
				Name:  "login",
				Usage: "Unlock with the PIN",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "pin", Usage: "PIN", Required: true},
				},
				Action: withApp(SettingsLoginAction),
			},
			{
				Name:   "logout",
				Usage:  "Lock the app",
				Action: withApp(SettingsLogoutAction),
			},
			{
				Name:  "name",
				Usage: "Show or set the technician name printed on exports",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "set", Usage: "new name (empty clears it)"},
				},
				Action: withApp(SettingsNameAction),
			},
		},
	}
}

func SettingsShowAction(ctx context.Context, cmd *cli.Command, app *AppContext) error {
	s, err := app.Settings.Load(ctx)
	if err != nil {
		return err
	}
	name, err := app.Settings.TechnicianName(ctx)
	if err != nil {
		return err
	}
	printf(cmd, "Technician:     %s\n", name)
	printf(cmd, "Target hours:   %g\n", s.TargetHours)
	printf(cmd, "Absence hours:  %g\n", s.AbsenceHours)
	printf(cmd, "Theme:          %s\n", s.Theme)
	printf(cmd, "PIN set:        %t\n", s.HasPIN())
	printf(cmd, "Logged in:      %t\n", s.IsAuthenticated)
	printf(cmd, "OCR provider:   %s\n", app.OCR.ProviderName())
	return nil
}

func SettingsSetAction(ctx context.Context, cmd *cli.Command, app *AppContext) error {
	var req settings.UpdateSettingsRequest
	if cmd.IsSet("target") {
		v := cmd.Float("target")
		req.TargetHours = &v
	}
	if cmd.IsSet("absence") {
		v := cmd.Float("absence")
		req.AbsenceHours = &v
	}
	if cmd.IsSet("theme") {
		v := cmd.String("theme")
		req.Theme = &v
	}
	s, err := app.Settings.Update(ctx, req)
	if err != nil {
		return err
	}
	printf(cmd, "Settings saved: target %gh, absence %gh, theme %s\n", s.TargetHours, s.AbsenceHours, s.Theme)
	return nil
}

func SettingsPINAction(ctx context.Context, cmd *cli.Command, app *AppContext) error {
	pin := cmd.String("pin")
	if err := app.Settings.SetPIN(ctx, pin); err != nil {
		return err
	}
	if pin == "" {
		printf(cmd, "PIN removed.\n")
	} else {
		printf(cmd, "PIN set.\n")
	}
	return nil
}

func SettingsLoginAction(ctx context.Context, cmd *cli.Command, app *AppContext) error {
	if err := app.Settings.VerifyPIN(ctx, cmd.String("pin")); err != nil {
		return err
	}
	printf(cmd, "Logged in.\n")
	return nil
}

func SettingsLogoutAction(ctx context.Context, cmd *cli.Command, app *AppContext) error {
	if err := app.Settings.Logout(ctx); err != nil {
		return err
	}
	printf(cmd, "Logged out.\n")
	return nil
}

func SettingsNameAction(ctx context.Context, cmd *cli.Command, app *AppContext) error {
	if cmd.IsSet("set") {
		if err := app.Settings.SetTechnicianName(ctx, cmd.String("set")); err != nil {
			return err
		}
	}
	name, err := app.Settings.TechnicianName(ctx)
	if err != nil {
		return err
	}
	if name == "" {
		printf(cmd, "No technician name set.\n")
		return nil
	}
	printf(cmd, "Technician: %s\n", name)
	return nil
}
