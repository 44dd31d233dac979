package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"text/template"

	"ircgram/internal/config"

	"github.com/spf13/cobra"
)

const launchdLabel = "com.ircgram.relay"

// unitParams feeds both service file templates.
type unitParams struct {
	Label    string
	Exec     string
	Config   string
	LogDir   string
	WantedBy string
}

func installDaemonCmd() *cobra.Command {
	var system bool
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install the relay as a system daemon (launchd/systemd)",
		Long:  "Generates and installs a service file so the relay starts on login (or boot with --system).",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			// A daemon pointed at a missing or broken config would just
			// crash-loop under Restart=on-failure.
			if _, err := config.Load(cfgPath); err != nil {
				return fmt.Errorf("config must be valid before installing: %w", err)
			}
			execPath, err := os.Executable()
			if err != nil {
				return fmt.Errorf("cannot determine executable path: %w", err)
			}

			switch runtime.GOOS {
			case "darwin":
				if system {
					return fmt.Errorf("--system is only supported with systemd")
				}
				return installUnit(launchdPlistPath(), launchdTemplate, unitParams{
					Label:  launchdLabel,
					Exec:   execPath,
					Config: cfgPath,
					LogDir: launchdLogDir(),
				}, launchdHints())
			case "linux":
				return installUnit(systemdUnitPath(system), systemdTemplate, unitParams{
					Exec:     execPath,
					Config:   cfgPath,
					WantedBy: systemdWantedBy(system),
				}, systemdHints(system))
			default:
				return fmt.Errorf("unsupported OS: %s (supported: darwin, linux)", runtime.GOOS)
			}
		},
	}
	cmd.Flags().BoolVar(&system, "system", false, "install a system-wide systemd unit instead of a user unit (needs root)")
	return cmd
}

func uninstallDaemonCmd() *cobra.Command {
	var system bool
	cmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the relay system daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			switch runtime.GOOS {
			case "darwin":
				path = launchdPlistPath()
			case "linux":
				path = systemdUnitPath(system)
			default:
				return fmt.Errorf("unsupported OS: %s", runtime.GOOS)
			}
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("remove service file: %w", err)
			}
			fmt.Printf("Daemon uninstalled: %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&system, "system", false, "remove the system-wide systemd unit")
	return cmd
}

// installUnit renders the template and writes it, creating parent
// directories (and the launchd log dir) as needed.
func installUnit(path, tmpl string, p unitParams, hints []string) error {
	unit, err := renderUnit(tmpl, p)
	if err != nil {
		return err
	}
	if p.LogDir != "" {
		if err := os.MkdirAll(p.LogDir, 0o755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(unit), 0o644); err != nil {
		return err
	}

	fmt.Printf("Daemon installed: %s\n", path)
	for _, h := range hints {
		fmt.Println(h)
	}
	return nil
}

func renderUnit(tmpl string, p unitParams) (string, error) {
	t, err := template.New("unit").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parse unit template: %w", err)
	}
	var sb strings.Builder
	if err := t.Execute(&sb, p); err != nil {
		return "", fmt.Errorf("render unit: %w", err)
	}
	return sb.String(), nil
}

func launchdPlistPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "Library", "LaunchAgents", launchdLabel+".plist")
}

func launchdLogDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".ircgram", "logs")
}

func systemdUnitPath(system bool) string {
	if system {
		return "/etc/systemd/system/ircgram.service"
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "systemd", "user", "ircgram.service")
}

func launchdHints() []string {
	p := launchdPlistPath()
	return []string{
		"To start: launchctl load " + p,
		"To stop:  launchctl unload " + p,
	}
}

// systemdWantedBy picks the install target: user units hook the login
// session, system units hook boot.
func systemdWantedBy(system bool) string {
	if system {
		return "multi-user.target"
	}
	return "default.target"
}

func systemdHints(system bool) []string {
	ctl := "systemctl --user"
	if system {
		ctl = "systemctl"
	}
	return []string{
		"To start:  " + ctl + " start ircgram",
		"To enable: " + ctl + " enable ircgram",
		"To stop:   " + ctl + " stop ircgram",
	}
}

const launchdTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>
    <key>ProgramArguments</key>
    <array>
        <string>{{.Exec}}</string>
        <string>run</string>
        <string>--config</string>
        <string>{{.Config}}</string>
    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <true/>
    <key>StandardOutPath</key>
    <string>{{.LogDir}}/ircgram.log</string>
    <key>StandardErrorPath</key>
    <string>{{.LogDir}}/ircgram-error.log</string>
</dict>
</plist>
`

const systemdTemplate = `[Unit]
Description=ircgram IRC/Telegram relay
Wants=network-online.target
After=network-online.target

[Service]
Type=simple
ExecStart={{.Exec}} run --config {{.Config}}
Restart=on-failure
RestartSec=5
NoNewPrivileges=true

[Install]
WantedBy={{.WantedBy}}
`
