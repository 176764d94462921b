package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/stuga-cloud/console/internal/domain"
	"github.com/stuga-cloud/console/internal/wizard"
	apiclient "github.com/stuga-cloud/console/pkg/api/client"
)

// errBack is returned by a prompt when the user asked for the previous step.
var errBack = errors.New("back")

func containerCreate(args []string) error {
	fs := flag.NewFlagSet("container create", flag.ExitOnError)
	projectID := fs.String("project", "", "Project identifier")
	fs.Parse(args)
	if strings.TrimSpace(*projectID) == "" {
		return errors.New("--project is required")
	}

	_, client, token, err := session()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	p, err := client.GetProject(ctx, token, *projectID)
	if err != nil {
		cancel()
		return err
	}
	settings, err := client.Settings(ctx, token)
	cancel()
	if err != nil {
		return fmt.Errorf("load server settings: %w", err)
	}
	if len(settings.Registries) == 0 {
		return errors.New("server has no image registries configured")
	}

	w := wizard.New(p.ID, p.Name, settings.Registries)
	creator := apiCreator{client: client, token: token}
	path, err := newPrompter(os.Stdin, os.Stdout, settings.BaseContainerDomain).run(context.Background(), w, creator)
	if err != nil {
		return err
	}
	fmt.Printf("application created: %s\n", path)
	return nil
}

type apiCreator struct {
	client *apiclient.Client
	token  string
}

func (c apiCreator) CreateContainer(ctx context.Context, projectID string, body domain.CreateContainerApplicationBody) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()
	app, err := c.client.CreateContainer(ctx, c.token, projectID, body)
	if err != nil {
		return "", err
	}
	return app.ID, nil
}

// prompter drives a wizard from line based input. Entering "<" at any
// prompt returns to the previous step.
type prompter struct {
	in         *bufio.Scanner
	out        io.Writer
	baseDomain string
}

func newPrompter(in io.Reader, out io.Writer, baseDomain string) *prompter {
	return &prompter{in: bufio.NewScanner(in), out: out, baseDomain: baseDomain}
}

func (p *prompter) run(ctx context.Context, w *wizard.Wizard, creator wizard.Creator) (string, error) {
	for {
		steps := w.Steps()
		fmt.Fprintf(p.out, "\n[%d/%d] %s\n", w.Index()+1, len(steps), w.Current())
		err := p.step(w, w.Current())
		switch {
		case errors.Is(err, errBack):
			w.Apply(wizard.Previous())
			continue
		case err != nil:
			return "", err
		}
		if !w.IsLast() {
			w.Apply(wizard.Next())
			continue
		}

		ok, err := p.confirm("Create application?")
		if errors.Is(err, errBack) {
			continue
		}
		if err != nil {
			return "", err
		}
		if !ok {
			return "", errors.New("aborted")
		}
		path, err := w.Submit(ctx, creator)
		if err != nil {
			fmt.Fprintf(p.out, "%s: %v\n", w.Notice(), err)
			continue
		}
		return path, nil
	}
}

func (p *prompter) step(w *wizard.Wizard, step wizard.Step) error {
	switch step {
	case wizard.StepName:
		return p.field(w, wizard.FieldName, "Application name", w.SetName, func() {
			fmt.Fprintf(p.out, "will be served on %s\n", w.PreviewURL(p.baseDomain))
		})
	case wizard.StepImage:
		if err := p.registry(w); err != nil {
			return err
		}
		return p.field(w, wizard.FieldImage, "Image (e.g. nginx:latest)", w.SetImage, nil)
	case wizard.StepPort:
		return p.field(w, wizard.FieldPort, "Port", w.SetPort, nil)
	case wizard.StepType:
		idx, err := p.choose("Application type", []string{string(domain.SingleInstance), string(domain.LoadBalanced)}, 1)
		if err != nil {
			return err
		}
		return w.SetType([]domain.ApplicationType{domain.SingleInstance, domain.LoadBalanced}[idx])
	case wizard.StepLimits:
		cpu, err := p.chooseOption("CPU limit", wizard.CPUOptions())
		if err != nil {
			return err
		}
		if err := w.SetCPULimit(cpu); err != nil {
			return err
		}
		mem, err := p.chooseOption("Memory limit", wizard.MemoryOptions())
		if err != nil {
			return err
		}
		return w.SetMemoryLimit(mem)
	case wizard.StepScaling:
		if err := p.field(w, wizard.FieldReplicas, "Replicas", w.SetReplicas, nil); err != nil {
			return err
		}
		auto, err := p.confirm("Enable autoscaling?")
		if err != nil {
			return err
		}
		w.SetAutoscaling(auto)
		if !w.ThresholdsVisible() {
			return nil
		}
		if err := p.field(w, wizard.FieldCPUThreshold, "CPU usage threshold (%)", w.SetCPUThreshold, nil); err != nil {
			return err
		}
		return p.field(w, wizard.FieldMemoryThreshold, "Memory usage threshold (%)", w.SetMemoryThreshold, nil)
	case wizard.StepEnvironmentVariables:
		return p.pairs("Environment variable NAME=value (empty to continue)", w.AddEnv, w.SetEnv)
	case wizard.StepSecrets:
		return p.pairs("Secret NAME=value (empty to continue)", w.AddSecret, w.SetSecret)
	case wizard.StepAdministrator:
		return p.field(w, wizard.FieldEmail, "Administrator email (optional)", func(v string) {
			if v != "" {
				w.SetAdministratorEmail(v)
			}
		}, nil)
	}
	return nil
}

// field asks until the wizard reports no error for name.
func (p *prompter) field(w *wizard.Wizard, name, label string, set func(string), after func()) error {
	for {
		value, err := p.ask(label)
		if err != nil {
			return err
		}
		set(value)
		if msg, bad := w.Errors()[name]; bad {
			fmt.Fprintln(p.out, msg)
			continue
		}
		if after != nil {
			after()
		}
		return nil
	}
}

func (p *prompter) registry(w *wizard.Wizard) error {
	current := w.Registry()
	names := []string{wizard.RegistryDockerHub, wizard.RegistryPrivate}
	fmt.Fprintf(p.out, "Registry [%s]: ", current.Name)
	value, err := p.line()
	if err != nil {
		return err
	}
	if value == "" {
		return nil
	}
	if n, convErr := strconv.Atoi(value); convErr == nil && n >= 1 && n <= len(names) {
		value = names[n-1]
	}
	if notice := w.SelectRegistry(value); notice != "" {
		fmt.Fprintln(p.out, notice)
	}
	fmt.Fprintf(p.out, "browse images at %s\n", w.Registry().URL)
	return nil
}

func (p *prompter) pairs(label string, add func() int, set func(int, string, string) error) error {
	for {
		value, err := p.ask(label)
		if err != nil {
			return err
		}
		if value == "" {
			return nil
		}
		name, val, ok := strings.Cut(value, "=")
		if !ok || strings.TrimSpace(name) == "" {
			fmt.Fprintln(p.out, "expected NAME=value")
			continue
		}
		if err := set(add(), strings.TrimSpace(name), val); err != nil {
			return err
		}
	}
}

func (p *prompter) chooseOption(label string, options []wizard.Option) (int, error) {
	labels := make([]string, len(options))
	for i, o := range options {
		labels[i] = o.Label
	}
	idx, err := p.choose(label, labels, 0)
	if err != nil {
		return 0, err
	}
	return options[idx].Value, nil
}

func (p *prompter) choose(label string, options []string, def int) (int, error) {
	for i, o := range options {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, o)
	}
	for {
		fmt.Fprintf(p.out, "%s [%d]: ", label, def+1)
		value, err := p.line()
		if err != nil {
			return 0, err
		}
		if value == "" {
			return def, nil
		}
		n, convErr := strconv.Atoi(value)
		if convErr != nil || n < 1 || n > len(options) {
			fmt.Fprintf(p.out, "choose a number between 1 and %d\n", len(options))
			continue
		}
		return n - 1, nil
	}
}

func (p *prompter) confirm(label string) (bool, error) {
	fmt.Fprintf(p.out, "%s [y/N]: ", label)
	value, err := p.line()
	if err != nil {
		return false, err
	}
	return strings.EqualFold(value, "y") || strings.EqualFold(value, "yes"), nil
}

func (p *prompter) ask(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	return p.line()
}

func (p *prompter) line() (string, error) {
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	value := strings.TrimSpace(p.in.Text())
	if value == "<" {
		return "", errBack
	}
	return value, nil
}
