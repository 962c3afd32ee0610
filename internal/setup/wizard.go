// Package setup implements the interactive backupnotify setup wizard.
package setup

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/Fullex26/backupnotify/internal/config"
)

const DefaultEnvPath = "/etc/backupnotify/env"

const ntfyTokenEnv = "BACKUPNOTIFY_NTFY_TOKEN"

var stdinIsTerminal = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }

const configHeader = `# backupnotify configuration
# Generated by 'backupnotify setup'. Secrets live in the env file.

`

// answers is what the wizard collected
type answers struct {
	cfg     *config.Config
	envVars map[string]string // written to env file
}

// Run is the entry point for the interactive setup wizard.
func Run(configPath, envPath string) error {
	out := os.Stdout
	fmt.Fprintln(out)
	fmt.Fprintln(out, "backupnotify setup")
	fmt.Fprintln(out, "──────────────────")
	fmt.Fprintln(out)

	r := bufio.NewReader(os.Stdin)
	a, err := collect(r, out)
	if err != nil {
		return err
	}

	if len(a.envVars) > 0 {
		if err := writeEnvFile(envPath, a.envVars); err != nil {
			return fmt.Errorf("writing env file: %w", err)
		}
		// Values loaded at startup would shadow the file in the test run.
		for k := range a.envVars {
			_ = os.Unsetenv(k)
		}
		fmt.Fprintf(out, "  Credentials saved to %s\n", envPath)
	}

	if err := writeConfig(configPath, a.cfg); err != nil {
		return err
	}
	fmt.Fprintf(out, "  Config written: %s\n\n", configPath)

	fmt.Fprint(out, "  Send a test notification? [Y/n]: ")
	if readBool(r, true) {
		if err := runTest(configPath, envPath); err != nil {
			fmt.Fprintf(out, "\n  Test failed: %v\n", err)
			fmt.Fprintln(out, "  Check the receiver, then retry: backupnotify test")
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Setup complete!")
	fmt.Fprintln(out, "   Report a run with: backupnotify notify --label <job> --trigger <trigger> --outcome success")
	fmt.Fprintln(out)
	return nil
}

// collect prompts for every setting, starting from the defaults.
func collect(r *bufio.Reader, out io.Writer) (answers, error) {
	cfg := config.DefaultConfig()
	a := answers{cfg: cfg, envVars: make(map[string]string)}
	sensu := &cfg.Notifications.Sensu

	fmt.Fprintln(out, "  Sensu client socket")
	fmt.Fprintln(out, "  ──────────────────────────────────────────────────────────")

	sensu.Host = prompt(r, out, "Host", sensu.Host)

	portText := prompt(r, out, "Port", strconv.Itoa(sensu.Port))
	port, err := strconv.Atoi(portText)
	if err != nil || port < 1 || port > 65535 {
		return a, fmt.Errorf("invalid port %q", portText)
	}
	sensu.Port = port

	sensu.Name = prompt(r, out, "Check name", sensu.Name)
	if handlers := splitList(prompt(r, out, "Handlers (comma separated)", strings.Join(sensu.Handler, ","))); len(handlers) > 0 {
		sensu.Handler = handlers
	}
	fmt.Fprintln(out)

	fmt.Fprint(out, "  Also push results to ntfy? [y/N]: ")
	if readBool(r, false) {
		ntfy := &cfg.Notifications.Ntfy
		ntfy.Enabled = true
		ntfy.Topic = prompt(r, out, "Topic", "backups")
		ntfy.Server = prompt(r, out, "Server", ntfy.Server)

		token, err := readMasked(r, out, "  Access token (blank for none): ")
		if err != nil {
			return a, err
		}
		if token = strings.TrimSpace(token); token != "" {
			a.envVars[ntfyTokenEnv] = token
			ntfy.Token = "${" + ntfyTokenEnv + "}"
		}
		fmt.Fprintln(out)
	}

	fmt.Fprint(out, "  Report successful runs? [Y/n]: ")
	cfg.Policy.OnSuccess = readBool(r, true)
	if !cfg.Policy.OnSuccess {
		fmt.Fprint(out, "  Report runs that finished with warnings? [Y/n]: ")
		cfg.Policy.OnWarning = readBool(r, true)
	}
	cfg.Policy.OnFailure = true

	if err := cfg.Validate(); err != nil {
		return a, fmt.Errorf("invalid answers: %w", err)
	}
	return a, nil
}

// writeConfig marshals cfg as YAML to path, creating the directory.
func writeConfig(path string, cfg *config.Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(configHeader), data...), 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func splitList(s string) []string {
	var items []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}

// writeEnvFile writes vars to path in dotenv format with mode 0600,
// creating the directory.
func writeEnvFile(path string, vars map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("creating env directory: %w", err)
	}
	content, err := godotenv.Marshal(vars)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content+"\n"), 0600)
}

// runTest invokes the current binary's "test" subcommand.
func runTest(configPath, envPath string) error {
	self, err := os.Executable()
	if err != nil {
		self = "backupnotify"
	}
	cmd := exec.Command(self, "--config", configPath, "--env-file", envPath, "test")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// prompt shows label with a default and returns the answer or the default.
func prompt(r *bufio.Reader, out io.Writer, label, def string) string {
	fmt.Fprintf(out, "  %s [%s]: ", label, def)
	if line := strings.TrimSpace(readLine(r)); line != "" {
		return line
	}
	return def
}

// readLine reads one line from r, stripping the trailing newline.
func readLine(r *bufio.Reader) string {
	line, _ := r.ReadString('\n')
	return strings.TrimRight(line, "\r\n")
}

// readMasked reads a secret without echoing characters when stdin is a TTY.
// Falls back to plain line reading for non-interactive contexts (pipes, CI).
func readMasked(r *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	if stdinIsTerminal() {
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("reading secret: %w", err)
		}
		return string(b), nil
	}
	return readLine(r), nil
}

// readBool parses a y/n response; returns defaultVal on empty input.
func readBool(r *bufio.Reader, defaultVal bool) bool {
	line := strings.ToLower(strings.TrimSpace(readLine(r)))
	if line == "" {
		return defaultVal
	}
	return line == "y" || line == "yes"
}
