package setup

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/battlewithbytes/webbrand/internal/config"
)

// BuildForm constructs the TUI form that writes configPath.
func BuildForm(answers *Answers, configPath string) *huh.Form {
	groups := []*huh.Group{
		welcomeGroup(),
		pathsGroup(answers),
		modeGroup(answers),
		interceptGroup(answers),
		pushGroup(answers),
		serverGroup(answers),
		loggingGroup(answers),
		confirmGroup(answers, configPath),
	}
	return huh.NewForm(groups...).WithTheme(huh.ThemeCatppuccin())
}

func welcomeGroup() *huh.Group {
	return huh.NewGroup(
		huh.NewNote().
			Title("webbrand setup").
			Description("Replace the icon and banners of a web application's\n" +
				"static bundle with your own images.\n\n" +
				"Let's configure where the bundle lives and how overrides are applied."),
	)
}

func pathsGroup(answers *Answers) *huh.Group {
	return huh.NewGroup(
		huh.NewInput().
			Title("Web bundle directory").
			Description("Root of the application's static web files.").
			Value(&answers.WebDir).
			Validate(ValidateWebDir),
		huh.NewInput().
			Title("Override directory").
			Description("Uploaded images are stored here, one file per role.").
			Value(&answers.OverrideDir).
			Validate(ValidateAbsPath),
		huh.NewInput().
			Title("Data directory").
			Description("History database and pristine backups of overwritten files.").
			Value(&answers.DataDir).
			Validate(ValidateAbsPath),
	)
}

func modeGroup(answers *Answers) *huh.Group {
	return huh.NewGroup(
		huh.NewSelect[string]().
			Title("Branding mode").
			Options(
				huh.NewOption("Intercept requests (bundle untouched, recommended)", config.ModeIntercept),
				huh.NewOption("Push copies into the bundle", config.ModePush),
				huh.NewOption("Both", config.ModeBoth),
			).
			Value(&answers.Mode),
	)
}

func interceptGroup(answers *Answers) *huh.Group {
	return huh.NewGroup(
		huh.NewInput().
			Title("URL prefix").
			Description("Path the bundle is served under, e.g. /web. Leave empty for /.").
			Value(&answers.Prefix).
			Validate(func(s string) error {
				if s = strings.TrimSpace(s); s != "" && !strings.HasPrefix(s, "/") {
					return fmt.Errorf("prefix must start with '/'")
				}
				return nil
			}),
	).WithHideFunc(func() bool { return answers.Mode == config.ModePush })
}

func pushGroup(answers *Answers) *huh.Group {
	return huh.NewGroup(
		huh.NewConfirm().
			Title("Keep pristine backups?").
			Description("Recommended: Yes. Without a backup, deleting an override\n" +
				"cannot put the original image back into the bundle.").
			Value(&answers.Backup),
	).WithHideFunc(func() bool { return answers.Mode == config.ModeIntercept })
}

func serverGroup(answers *Answers) *huh.Group {
	return huh.NewGroup(
		huh.NewInput().
			Title("Bind Address").
			Description("IP address to listen on. Use 0.0.0.0 for all interfaces.").
			Value(&answers.BindAddress).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return fmt.Errorf("bind address cannot be empty")
				}
				return nil
			}),
		huh.NewInput().
			Title("Port").
			Value(&answers.PortStr).
			Validate(ValidatePort),
		huh.NewInput().
			Title("Dashboard URL").
			Description("Where the browser returns after an upload.").
			Value(&answers.DashboardURL),
		huh.NewInput().
			Title("Max upload size (MB)").
			Value(&answers.MaxUploadStr).
			Validate(ValidatePositiveInt),
	)
}

func loggingGroup(answers *Answers) *huh.Group {
	return huh.NewGroup(
		huh.NewSelect[string]().
			Title("Log level").
			Options(huh.NewOptions("debug", "info", "warn", "error")...).
			Value(&answers.LogLevel),
	)
}

func confirmGroup(answers *Answers, configPath string) *huh.Group {
	return huh.NewGroup(
		huh.NewNote().
			Title("Ready").
			Description(fmt.Sprintf("The configuration will be written to %s.", configPath)),
		huh.NewConfirm().
			Title("Write configuration?").
			Value(&answers.Confirmed),
	)
}
