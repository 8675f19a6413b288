// Command srcuri is a thin argv/deep-link activation harness around the
// dispatcher (spec.md §6). It is deliberately minimal: protocol
// registration, tray integration, and dialog rendering are out of scope
// and belong to a host UI collaborator this binary does not implement.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/srcuri/srcuri-core/internal/config"
	"github.com/srcuri/srcuri-core/internal/dispatcher"
	"github.com/srcuri/srcuri-core/internal/editors"
	"github.com/srcuri/srcuri-core/internal/gitrev"
	"github.com/srcuri/srcuri-core/internal/lastseen"
	"github.com/srcuri/srcuri-core/internal/logging"
	"github.com/srcuri/srcuri-core/internal/mru"
	"github.com/srcuri/srcuri-core/internal/resolver"
	"github.com/srcuri/srcuri-core/internal/settings"
)

// Version is set at build time via -ldflags.
var Version = "0.1.0"

var deepLinkJSON string

var rootCmd = &cobra.Command{
	Use:     "srcuri [url]",
	Short:   "Resolve a srcuri:// link and open it in the configured editor",
	Version: Version,
	Args:    cobra.MaximumNArgs(1),
	RunE:    runRoot,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.Flags().StringVar(&deepLinkJSON, "deep-link-json", "", "JSON array of srcuri:// URLs (deep-link / single-instance-forward activation shape)")
}

// osExit is a variable so tests can override it without calling os.Exit.
var osExit = os.Exit

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		osExit(1)
	}
}

func runRoot(cmd *cobra.Command, args []string) error {
	urls, err := activationURLs(args, deepLinkJSON)
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		return cmd.Help()
	}

	d, cleanup, err := buildDispatcher()
	if err != nil {
		return fmt.Errorf("srcuri: %w", err)
	}
	defer cleanup()

	ctx := context.Background()
	log := logging.Default("srcuri")
	for _, u := range urls {
		res := d.Handle(ctx, u)
		printResult(ctx, d, log, u, res)
	}
	return nil
}

// activationURLs implements spec.md §6's two inbound shapes: the first
// non-flag argv entry, or --deep-link-json's JSON array form. An empty
// array or malformed JSON is logged and ignored, never a fatal error.
func activationURLs(args []string, deepLinkJSON string) ([]string, error) {
	var urls []string
	if len(args) > 0 {
		urls = append(urls, args[0])
	}
	if deepLinkJSON != "" {
		var fromDeepLink []string
		if err := json.Unmarshal([]byte(deepLinkJSON), &fromDeepLink); err != nil {
			logging.Default("srcuri").Warn("ignoring malformed --deep-link-json payload: %v", err)
			return urls, nil
		}
		if len(fromDeepLink) == 0 {
			logging.Default("srcuri").Warn("ignoring empty --deep-link-json payload")
		}
		urls = append(urls, fromDeepLink...)
	}
	return urls, nil
}

// printResult renders a HandleResult the way a CLI harness can: a real UI
// collaborator would show dialogs for these variants (spec.md §6), this
// binary instead prompts on the terminal (survey), color-codes the outcome
// (fatih/color), and calls back into the matching Dispatcher continuation
// method so a dialog result doesn't dead-end — the followup result is
// rendered in turn, recursively, the same way a second Handle() would be.
func printResult(ctx context.Context, d *dispatcher.Dispatcher, log *logging.Logger, url string, res dispatcher.HandleResult) {
	switch res.Kind {
	case dispatcher.ResultOpened:
		color.Green("opened: %s", url)

	case dispatcher.ResultShowChooser:
		color.Yellow("ambiguous: %s matched %d workspaces", url, len(res.Candidates))
		options := make([]string, len(res.Candidates))
		for i, c := range res.Candidates {
			options[i] = fmt.Sprintf("%s (%s)", c.AbsolutePath, c.Workspace)
		}
		var choice string
		prompt := &survey.Select{Message: "Open which candidate?", Options: options}
		if err := survey.AskOne(prompt, &choice); err != nil {
			log.Warn("candidate prompt cancelled: %v", err)
			printResult(ctx, d, log, url, d.Cancel())
			return
		}
		index := indexOf(options, choice)
		printResult(ctx, d, log, url, d.SelectCandidate(ctx, res.Candidates, index, res.Line, res.Col))

	case dispatcher.ResultShowRevisionDialog:
		color.Yellow("revision dialog: %s (can_checkout=%v can_worktree=%v can_fetch=%v block=%q)",
			url, res.Revision.CanCheckout, res.Revision.CanWorktree, res.Revision.CanFetch, res.Revision.BlockReason)
		printResult(ctx, d, log, url, resolveRevisionDialog(ctx, d, log, res))

	case dispatcher.ResultShowCloneDialog:
		color.Yellow("clone dialog: %s -> %s (workspace=%s ref=%s)", res.Remote, res.Destination, res.WorkspaceName, res.Ref)
		var confirm bool
		prompt := &survey.Confirm{Message: fmt.Sprintf("Clone %s?", res.Remote)}
		if err := survey.AskOne(prompt, &confirm); err != nil || !confirm {
			if err != nil {
				log.Warn("clone prompt cancelled: %v", err)
			}
			printResult(ctx, d, log, url, d.Cancel())
			return
		}
		printResult(ctx, d, log, url, d.ConfirmClone(ctx, res.Remote, res.Destination, res.WorkspaceName, res.Ref, res.RelPath, res.Line, res.Col))

	case dispatcher.ResultShowOutsideWorkspaceConfirm:
		color.Yellow("confirm outside-workspace open: %s", res.Resolved)
		var confirm bool
		prompt := &survey.Confirm{Message: "Open this file outside any configured workspace?"}
		if err := survey.AskOne(prompt, &confirm); err != nil || !confirm {
			if err != nil {
				log.Warn("confirm prompt cancelled: %v", err)
			}
			printResult(ctx, d, log, url, d.Cancel())
			return
		}
		printResult(ctx, d, log, url, d.ConfirmOpen(ctx, res.Resolved, res.Line, res.Col))

	case dispatcher.ResultShowMissingLocalRedirect:
		color.Yellow("no local copy, redirecting to: %s", res.WebURL)
	case dispatcher.ResultFlashSwitching:
		color.Cyan("switching %s -> %s", res.From, res.To)
	case dispatcher.ResultOpenInBrowser:
		color.Cyan("opening in browser: %s", res.WebURL)
	case dispatcher.ResultCancelled:
		color.Yellow("cancelled: %s", url)
	default:
		color.Red("%s: %s: %s", url, res.ErrKind, res.Detail)
		log.Error("%s: %s: %s", url, res.ErrKind, res.Detail)
	}
}

// resolveRevisionDialog prompts for which of the dialog's offered actions
// to take and invokes the matching continuation (spec.md §6).
func resolveRevisionDialog(ctx context.Context, d *dispatcher.Dispatcher, log *logging.Logger, res dispatcher.HandleResult) dispatcher.HandleResult {
	var options []string
	if res.Revision.CanCheckout {
		options = append(options, "checkout")
	}
	if res.Revision.CanWorktree {
		options = append(options, "worktree")
	}
	if res.Revision.CanFetch {
		options = append(options, "fetch")
	}
	options = append(options, "ignore", "cancel")

	var choice string
	prompt := &survey.Select{Message: "Revision is unresolved — how to proceed?", Options: options}
	if err := survey.AskOne(prompt, &choice); err != nil {
		log.Warn("revision prompt cancelled: %v", err)
		return d.Cancel()
	}

	switch choice {
	case "checkout":
		return d.CheckoutAndOpen(ctx, res.RepoPath, res.Ref, res.RelPath, res.Line, res.Col)
	case "worktree":
		return d.CreateWorktreeAndOpen(ctx, res.RepoPath, res.Ref, res.RelPath, res.Line, res.Col)
	case "fetch":
		return d.FetchAndOpen(ctx, res.RepoPath, res.Ref, res.RelPath, res.RefKind, res.Line, res.Col)
	case "ignore":
		return d.IgnoreRefAndOpen(ctx, res.RepoPath, res.RelPath, res.Line, res.Col)
	default:
		return d.Cancel()
	}
}

func indexOf(options []string, choice string) int {
	for i, o := range options {
		if o == choice {
			return i
		}
	}
	return -1
}

// buildDispatcher wires every subsystem in spec.md §2's component diagram:
// Settings, last-seen, MRU tracker, editor registry, git worktree registry,
// and the resolver, behind the Dispatcher entry point.
func buildDispatcher() (*dispatcher.Dispatcher, func(), error) {
	settingsPath, err := config.SettingsPath()
	if err != nil {
		return nil, nil, err
	}
	store, err := settings.Load(settingsPath)
	if err != nil {
		return nil, nil, err
	}

	lastSeenPath, err := config.LastSeenPath()
	if err != nil {
		return nil, nil, err
	}
	ls, err := lastseen.Load(lastSeenPath)
	if err != nil {
		return nil, nil, err
	}

	mruPath, err := config.MRUPath()
	if err != nil {
		return nil, nil, err
	}
	mruStore, err := mru.Load(mruPath)
	if err != nil {
		return nil, nil, err
	}
	tracker := mru.NewTracker(mruStore, func() []string {
		data := store.Snapshot()
		paths := make([]string, 0, len(data.Workspaces))
		for _, ws := range data.Workspaces {
			paths = append(paths, ws.Path)
		}
		return paths
	})
	trackerCtx, cancelTracker := context.WithCancel(context.Background())
	go tracker.Run(trackerCtx)

	reg := buildEditorRegistry()

	worktreeRoot := store.Snapshot().WorktreeRoot
	if worktreeRoot == "" {
		worktreeRoot, err = config.WorktreeRoot()
		if err != nil {
			cancelTracker()
			return nil, nil, err
		}
	}
	maxPer := store.Snapshot().MaxWorktreesPerRepo
	worktrees := gitrev.NewRegistry(worktreeRoot, maxPer)

	res := resolver.New(store, mruStore, filepath.EvalSymlinks)
	d := dispatcher.New(store, ls, reg, res, worktrees)

	cleanup := func() { cancelTracker() }
	return d, cleanup, nil
}

// buildEditorRegistry registers every editor family spec.md §4.6 names.
// Discovery is lazy and cached per-manager; registering an editor here
// costs nothing until Select()/Launch() actually probe for its binary.
func buildEditorRegistry() *editors.Registry {
	term := editors.NewSystemTerminal()

	managers := []editors.Manager{
		editors.NewVSCodeManager("vscode", "Visual Studio Code", "code"),
		editors.NewJetBrainsManager("idea", "IntelliJ IDEA", "idea", "intellij-idea", nil),
		editors.NewJetBrainsManager("goland", "GoLand", "goland", "goland", nil),
		editors.NewJetBrainsManager("webstorm", "WebStorm", "webstorm", "webstorm", nil),
		editors.NewJetBrainsManager("pycharm", "PyCharm", "pycharm", "pycharm-professional", nil),
		editors.NewNeovimManager(term),
		editors.NewVimManager(term),
		editors.NewEmacsManager(term),
		editors.NewOtherTerminalManager("nano", "Nano", "nano", "+", editors.Capabilities{SupportsFolders: false, SupportsColumn: true}, term),
		editors.NewOtherTerminalManager("micro", "Micro", "micro", "+", editors.Capabilities{SupportsFolders: false, SupportsColumn: true}, term),
		editors.NewOtherTerminalManager("kakoune", "Kakoune", "kak", "+", editors.Capabilities{SupportsFolders: false, SupportsColumn: false}, term),
	}
	return editors.NewRegistry(managers)
}
