package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	apiclient "github.com/stuga-cloud/console/pkg/api/client"
)

var buildVersion = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "login":
		err = commandLogin(args)
	case "project":
		err = commandProject(args)
	case "member":
		err = commandMember(args)
	case "namespace":
		err = commandNamespace(args)
	case "container":
		err = commandContainer(args)
	case "version", "--version", "-v":
		printVersion()
		return
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func commandLogin(args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	token := fs.String("token", "", "Session token (supply to avoid prompt)")
	apiBase := fs.String("api", "", "Console base URL (default http://localhost:4000)")
	fs.Parse(args)

	secret := strings.TrimSpace(*token)
	if secret == "" {
		fmt.Print("Session token: ")
		bytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Print("\n")
		if err != nil {
			return fmt.Errorf("read token: %w", err)
		}
		secret = strings.TrimSpace(string(bytes))
	}
	if secret == "" {
		return errors.New("a session token is required")
	}

	cfg, _ := loadConfig()
	if strings.TrimSpace(*apiBase) != "" {
		cfg.APIBaseURL = *apiBase
	}

	client, err := apiclient.New(cfg.APIBaseURL)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if _, err := client.ListProjects(ctx, secret); err != nil {
		return fmt.Errorf("verify session: %w", err)
	}

	cfg.SessionToken = secret
	if err := saveConfig(cfg); err != nil {
		return err
	}
	fmt.Println("login successful")
	return nil
}

func commandProject(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: stuga project [list|show]")
	}
	switch args[0] {
	case "list":
		return projectList(args[1:])
	case "show":
		return projectShow(args[1:])
	default:
		return fmt.Errorf("unknown project command: %s", args[0])
	}
}

func projectList(args []string) error {
	fs := flag.NewFlagSet("project list", flag.ExitOnError)
	limit := fs.Int("limit", 0, "Maximum number of projects to display")
	fs.Parse(args)

	_, client, token, err := session()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	projects, err := client.ListProjects(ctx, token)
	if err != nil {
		return err
	}
	count := len(projects)
	if *limit > 0 && *limit < count {
		count = *limit
	}
	for _, p := range projects[:count] {
		fmt.Printf("%s\t%s\t%s\n", p.ID, p.Name, p.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

func projectShow(args []string) error {
	fs := flag.NewFlagSet("project show", flag.ExitOnError)
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
	defer cancel()

	p, err := client.GetProject(ctx, token, *projectID)
	if err != nil {
		return err
	}
	fmt.Printf("%s (%s) role=%s\n", p.Name, p.ID, p.Role)
	fmt.Println("members:")
	for _, m := range p.Members {
		fmt.Printf("  %s\t%s\t%s\n", m.ID, m.Role, m.Email)
	}
	fmt.Println("namespaces:")
	for _, ns := range p.ContainerNamespaces {
		fmt.Printf("  %s\t%s\t%d containers\n", ns.ID, ns.Name, len(ns.Containers))
	}
	return nil
}

func commandMember(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: stuga member [list|add|remove]")
	}
	fs := flag.NewFlagSet("member "+args[0], flag.ExitOnError)
	projectID := fs.String("project", "", "Project identifier")
	user := fs.String("user", "", "User id or email")
	role := fs.String("role", "COLLABORATOR", "Role (ADMIN|COLLABORATOR)")
	fs.Parse(args[1:])
	if strings.TrimSpace(*projectID) == "" {
		return errors.New("--project is required")
	}

	_, client, token, err := session()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	switch args[0] {
	case "list":
		members, err := client.ListMembers(ctx, token, *projectID)
		if err != nil {
			return err
		}
		for _, m := range members {
			fmt.Printf("%s\t%s\t%s\t%s\n", m.ID, m.Role, m.Name, m.Email)
		}
		return nil
	case "add":
		if strings.TrimSpace(*user) == "" {
			return errors.New("--user is required")
		}
		m, err := client.AddMember(ctx, token, *projectID, strings.TrimSpace(*user), *role)
		if err != nil {
			return err
		}
		fmt.Printf("member added: %s (%s)\n", m.ID, m.Role)
		return nil
	case "remove":
		if strings.TrimSpace(*user) == "" {
			return errors.New("--user is required")
		}
		if err := client.RemoveMember(ctx, token, *projectID, strings.TrimSpace(*user)); err != nil {
			return err
		}
		fmt.Println("member removed")
		return nil
	default:
		return fmt.Errorf("unknown member command: %s", args[0])
	}
}

func commandNamespace(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: stuga namespace [list|create|show]")
	}
	fs := flag.NewFlagSet("namespace "+args[0], flag.ExitOnError)
	projectID := fs.String("project", "", "Project identifier")
	namespaceID := fs.String("namespace", "", "Namespace identifier")
	name := fs.String("name", "", "Namespace name (defaults to one derived from the project)")
	fs.Parse(args[1:])
	if strings.TrimSpace(*projectID) == "" {
		return errors.New("--project is required")
	}

	_, client, token, err := session()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch args[0] {
	case "list":
		list, err := client.ListNamespaces(ctx, token, *projectID)
		if err != nil {
			return err
		}
		for _, ns := range list {
			fmt.Printf("%s\t%s\t%d containers\n", ns.ID, ns.Name, len(ns.Containers))
		}
		return nil
	case "create":
		ns, err := client.CreateNamespace(ctx, token, *projectID, *name)
		if err != nil {
			return err
		}
		fmt.Printf("namespace created: %s (%s)\n", ns.ID, ns.Name)
		return nil
	case "show":
		if strings.TrimSpace(*namespaceID) == "" {
			return errors.New("--namespace is required")
		}
		detail, err := client.GetNamespace(ctx, token, *projectID, *namespaceID)
		if err != nil {
			return err
		}
		fmt.Printf("%s (%s)\n", detail.Name, detail.ID)
		for _, app := range detail.Applications {
			state := "ok"
			if app.Missing {
				state = "missing on platform"
			}
			fmt.Printf("  %s\t%s\t%s\n", app.ID, app.IDInAPI, state)
		}
		return nil
	default:
		return fmt.Errorf("unknown namespace command: %s", args[0])
	}
}

func commandContainer(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: stuga container [create|show|logs|delete]")
	}
	switch args[0] {
	case "create":
		return containerCreate(args[1:])
	case "show", "logs", "delete":
	default:
		return fmt.Errorf("unknown container command: %s", args[0])
	}

	fs := flag.NewFlagSet("container "+args[0], flag.ExitOnError)
	projectID := fs.String("project", "", "Project identifier")
	namespaceID := fs.String("namespace", "", "Namespace identifier")
	applicationID := fs.String("app", "", "Application identifier")
	follow := fs.Bool("follow", false, "Stream logs until interrupted")
	fs.Parse(args[1:])
	if *projectID == "" || *namespaceID == "" || *applicationID == "" {
		return errors.New("--project, --namespace and --app are required")
	}
	ref := apiclient.Ref{ProjectID: *projectID, NamespaceID: *namespaceID, ApplicationID: *applicationID}

	_, client, token, err := session()
	if err != nil {
		return err
	}

	if args[0] == "logs" && *follow {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		err := client.StreamLogs(ctx, token, ref, func(e apiclient.LogEvent) error {
			if e.Type == apiclient.EventDeleted {
				fmt.Println("application deleted")
				return nil
			}
			printLogs(e.Logs)
			return nil
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	switch args[0] {
	case "show":
		app, err := client.GetContainer(ctx, token, ref)
		if err != nil {
			return err
		}
		out, _ := json.MarshalIndent(app, "", "  ")
		fmt.Println(string(out))
	case "logs":
		raw, err := client.ContainerLogs(ctx, token, ref)
		if err != nil {
			return err
		}
		printLogs(raw)
	case "delete":
		if err := client.DeleteContainer(ctx, token, ref); err != nil {
			return err
		}
		fmt.Println("application deleted")
	}
	return nil
}

// printLogs prints a list of lines one per line and anything else as JSON.
func printLogs(raw json.RawMessage) {
	var lines []string
	if err := json.Unmarshal(raw, &lines); err == nil {
		for _, line := range lines {
			fmt.Println(line)
		}
		return
	}
	fmt.Println(string(raw))
}

func printUsage() {
	fmt.Printf("stuga CLI %s\n\n", buildVersion)
	fmt.Print(`Usage:
	stuga login [--token <session-token>] [--api http://localhost:4000]
	stuga project list [--limit N]
	stuga project show --project <project-id>
	stuga member list --project <project-id>
	stuga member add --project <project-id> --user <user-id|email> [--role ADMIN|COLLABORATOR]
	stuga member remove --project <project-id> --user <member-id>
	stuga namespace list --project <project-id>
	stuga namespace create --project <project-id> [--name <name>]
	stuga namespace show --project <project-id> --namespace <namespace-id>
	stuga container create --project <project-id>
	stuga container show|logs|delete --project <project-id> --namespace <namespace-id> --app <app-id> [--follow]
	stuga version
`)
}

func printVersion() {
	fmt.Println(strings.TrimSpace(buildVersion))
}
