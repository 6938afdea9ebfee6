package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/drewdunne/gitdash/internal/logging"
	"github.com/drewdunne/gitdash/internal/provider"
	"github.com/drewdunne/gitdash/internal/server"
	"go.uber.org/zap"
)

var version = "0.1.0"

// requestTimeout bounds a single CLI command's calls to the platform.
const requestTimeout = 2 * time.Minute

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var code int
	switch os.Args[1] {
	case "login":
		code = runLogin(os.Args[2:])
	case "logout":
		code = runLogout(os.Args[2:])
	case "status":
		code = runStatus(os.Args[2:])
	case "repos":
		code = runRepos(os.Args[2:])
	case "pulls":
		code = runPulls(os.Args[2:])
	case "serve":
		code = runServe(os.Args[2:])
	case "version":
		fmt.Printf("gitdash v%s\n", version)
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		code = 1
	}
	os.Exit(code)
}

func printUsage() {
	fmt.Println("Usage: gitdash <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  login    Validate a token and start a session")
	fmt.Println("  logout   End the current session")
	fmt.Println("  status   Show and re-validate the current session")
	fmt.Println("  repos    List repositories visible to the session")
	fmt.Println("  pulls    List pull requests of a repository in a date range")
	fmt.Println("  serve    Start the local dashboard API")
	fmt.Println("  version  Print version information")
}

func runLogin(args []string) int {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	opts := registerCommon(fs)
	token := fs.String("token", "", "Access token (defaults to the configured provider token)")
	fs.Parse(args)

	a, err := newApp(opts)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	if *token == "" {
		*token = a.cfg.Host().Token
	}
	if *token == "" {
		return fail(fmt.Errorf("no token given; pass --token or set providers.%s.token", a.cfg.Provider))
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	a.store.Login(ctx, *token)
	st := a.store.Snapshot()
	if !st.Auth.IsAuthenticated {
		return fail(fmt.Errorf("login failed: %s", st.Error))
	}
	fmt.Printf("Logged in to %s as %s (%d repositories)\n", a.cfg.Provider, st.Auth.Username, len(st.Repositories))
	if st.Error != "" {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", st.Error)
	}
	return 0
}

func runLogout(args []string) int {
	fs := flag.NewFlagSet("logout", flag.ExitOnError)
	opts := registerCommon(fs)
	fs.Parse(args)

	a, err := newApp(opts)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	a.store.Logout(context.Background())
	fmt.Println("Logged out")
	return 0
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	opts := registerCommon(fs)
	fs.Parse(args)

	a, err := newApp(opts)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	a.store.Validate(ctx)
	st := a.store.Snapshot()
	writeStatus(os.Stdout, a.cfg.Provider, st)
	if st.Error != "" {
		return 1
	}
	return 0
}

func runRepos(args []string) int {
	fs := flag.NewFlagSet("repos", flag.ExitOnError)
	opts := registerCommon(fs)
	fs.Parse(args)

	a, err := newApp(opts)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	if err := a.requireSession(); err != nil {
		return fail(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	a.store.FetchRepositories(ctx)
	st := a.store.Snapshot()
	if st.Error != "" {
		return fail(fmt.Errorf("fetching repositories: %s", st.Error))
	}
	writeRepositories(os.Stdout, st.Repositories)
	return 0
}

func runPulls(args []string) int {
	fs := flag.NewFlagSet("pulls", flag.ExitOnError)
	opts := registerCommon(fs)
	owner := fs.String("owner", "", "Repository owner or GitLab namespace")
	repo := fs.String("repo", "", "Repository name")
	now := time.Now()
	since := fs.String("since", now.AddDate(0, 0, -30).Format(provider.DateLayout), "Start date (YYYY-MM-DD), inclusive")
	until := fs.String("until", now.Format(provider.DateLayout), "End date (YYYY-MM-DD), inclusive")
	fs.Parse(args)

	if *owner == "" || *repo == "" {
		return fail(fmt.Errorf("--owner and --repo are required"))
	}
	filter, err := provider.ParseTimeFilter(*since, *until)
	if err != nil {
		return fail(err)
	}

	a, err := newApp(opts)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	if err := a.requireSession(); err != nil {
		return fail(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	a.store.FetchPullRequests(ctx, *owner, *repo, filter)
	st := a.store.Snapshot()
	if st.Error != "" {
		return fail(fmt.Errorf("fetching pull requests: %s", st.Error))
	}
	writePullRequests(os.Stdout, st.PullRequests)
	return 0
}

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	opts := registerCommon(fs)
	fs.Parse(args)

	a, err := newApp(opts)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	if dir := a.cfg.Logging.Dir; dir != "" {
		cleaner := logging.NewCleaner(dir, a.cfg.Logging.RetentionDays)
		scheduler := logging.NewCleanupScheduler(cleaner, 24*time.Hour, a.log)
		scheduler.Start()
		defer scheduler.Stop()
	}

	// Pick up a restored session before the first request.
	a.store.FetchRepositories(context.Background())

	srv := server.New(a.cfg, a.store, a.log)
	if err := srv.ListenAndServeWithShutdown(); err != nil {
		a.log.Error("server error", zap.Error(err))
		return 1
	}
	return 0
}

func fail(err error) int {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}
