package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"notebookllm/internal/client"
	"notebookllm/internal/util"
)

var (
	watchInitial  bool
	watchIncludes []string
)

var defaultWatchIncludes = []string{"**/*.pdf", "**/*.txt", "**/*.md"}

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Index files dropped into a folder",
	Long: `Watches a folder and its subfolders and indexes new or changed files.
Files matching an --include pattern are indexed: .pdf files are uploaded,
everything else is sent as text. Hidden files and folders are ignored.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchInitial, "initial", false, "index files already in the folder before watching")
	watchCmd.Flags().StringSliceVar(&watchIncludes, "include", defaultWatchIncludes, "glob patterns, relative to the folder, of files to index")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	dir := args[0]
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch %s: not a directory", dir)
	}
	w, err := newFolderWatcher(newClient(), dir, watchIncludes)
	if err != nil {
		return err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	ctx := cmd.Context()
	if err := w.walk(dir, fw.Add, func(path string) {
		if watchInitial {
			w.report(cmd, w.handleEvent(ctx, fsnotify.Event{Name: path, Op: fsnotify.Create}))
		}
	}); err != nil {
		return err
	}

	cmd.Printf("Watching %s (Ctrl+C to stop)\n", dir)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) && isDir(ev.Name) {
				// Files can land in a new folder before it is watched.
				if err := w.walk(ev.Name, fw.Add, func(path string) {
					w.report(cmd, w.handleEvent(ctx, fsnotify.Event{Name: path, Op: fsnotify.Create}))
				}); err != nil {
					cmd.PrintErrf("watch error: %v\n", err)
				}
				continue
			}
			w.report(cmd, w.handleEvent(ctx, ev))
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			cmd.PrintErrf("watch error: %v\n", err)
		}
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

type watchResult struct {
	Path    string
	Action  string
	Summary string
	Err     error
}

// folderWatcher indexes files named by filesystem events. Content already
// sent for a path is not sent again.
type folderWatcher struct {
	client   *client.Client
	root     string
	patterns []string
	seen     map[string]string
}

func newFolderWatcher(c *client.Client, root string, patterns []string) (*folderWatcher, error) {
	if len(patterns) == 0 {
		patterns = defaultWatchIncludes
	}
	lowered := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid include pattern %q", p)
		}
		lowered = append(lowered, p)
	}
	return &folderWatcher{client: c, root: root, patterns: lowered, seen: map[string]string{}}, nil
}

// relative returns the slash-separated path below root, or false for paths
// outside root or inside a hidden file or folder.
func (w *folderWatcher) relative(path string) (string, bool) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == "." {
		return rel, true
	}
	for _, seg := range strings.Split(rel, "/") {
		if strings.HasPrefix(seg, ".") {
			return "", false
		}
	}
	return rel, true
}

func (w *folderWatcher) matches(rel string) bool {
	rel = strings.ToLower(rel)
	for _, p := range w.patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// walk calls addDir for every visible folder under dir and onFile for every
// visible file.
func (w *folderWatcher) walk(dir string, addDir func(string) error, onFile func(string)) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if _, ok := w.relative(path); !ok {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if err := addDir(path); err != nil {
				return fmt.Errorf("watch %s: %w", path, err)
			}
			return nil
		}
		onFile(path)
		return nil
	})
}

// handleEvent returns nil when the event needs no indexing.
func (w *folderWatcher) handleEvent(ctx context.Context, ev fsnotify.Event) *watchResult {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return nil
	}
	rel, ok := w.relative(ev.Name)
	if !ok || !w.matches(rel) {
		return nil
	}
	info, err := os.Stat(ev.Name)
	if err != nil || info.IsDir() {
		return nil
	}
	data, err := os.ReadFile(ev.Name)
	if err != nil {
		return &watchResult{Path: ev.Name, Action: "read", Err: err}
	}
	if len(data) == 0 {
		return nil
	}
	hash := util.ContentHash(data)
	if w.seen[ev.Name] == hash {
		return nil
	}

	name := filepath.Base(ev.Name)
	var res *watchResult
	if strings.EqualFold(filepath.Ext(name), ".pdf") {
		out, err := w.client.UploadPDF(ctx, name, data)
		res = &watchResult{Path: ev.Name, Action: "upload", Err: err,
			Summary: fmt.Sprintf("%d pages, %d chunks", out.Pages, out.Chunks)}
	} else {
		out, err := w.client.IngestText(ctx, name, string(data))
		res = &watchResult{Path: ev.Name, Action: "ingest", Err: err,
			Summary: fmt.Sprintf("%d chunks", out.Chunks)}
	}
	if res.Err == nil {
		w.seen[ev.Name] = hash
	}
	return res
}

func (w *folderWatcher) report(cmd *cobra.Command, r *watchResult) {
	if r == nil {
		return
	}
	if r.Err != nil {
		cmd.PrintErrf("%s %s failed: %v\n", r.Action, filepath.Base(r.Path), r.Err)
		return
	}
	cmd.Printf("%s %s: %s\n", r.Action, filepath.Base(r.Path), r.Summary)
}
