package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	json "github.com/goccy/go-json"
	"golang.org/x/term"

	"github.com/vanderheijden86/kanvas/pkg/analysis"
	"github.com/vanderheijden86/kanvas/pkg/config"
	"github.com/vanderheijden86/kanvas/pkg/filter"
	"github.com/vanderheijden86/kanvas/pkg/logging"
	"github.com/vanderheijden86/kanvas/pkg/model"
	"github.com/vanderheijden86/kanvas/pkg/store"
	"github.com/vanderheijden86/kanvas/pkg/ui"
)

func main() {
	help := flag.Bool("help", false, "Show help")
	configPath := flag.String("config", "", "Config file (default: .kanvas/config.yaml found from the working directory up)")
	dbPath := flag.String("db", "", "SQLite database path (overrides the config)")
	seedFile := flag.String("seed", "", "Import categories, NFTs and users from a JSON seed file")
	checkCategories := flag.Bool("check-categories", false, "Analyze the category hierarchy and print the report as JSON (exit 1 when unhealthy)")
	listingsJSON := flag.Bool("json", false, "Print one page of listings as JSON instead of starting the TUI")
	categories := flag.String("categories", "", "Comma separated category ids to filter by, parents expand to their leaves (with --json)")
	owner := flag.String("owner", "", "Only NFTs held by this address (with --json)")
	page := flag.Int("page", 1, "Listing page, 1-based (with --json)")
	sortFlag := flag.String("sort", "", "Listing order: newest, price_asc, price_desc, name")
	listUsers := flag.Bool("list-users", false, "Print admin users as JSON")
	roles := flag.String("roles", "", "Only users with any of these roles (with --list-users)")
	orderBy := flag.String("order-by", "id", "Order column for --list-users: id, email, user_name, address")
	desc := flag.Bool("desc", false, "Descending order (with --list-users)")
	addUser := flag.Bool("add-user", false, "Create a user from a JSON payload argument or stdin; opens a form on a terminal")
	setRoles := flag.String("set-roles", "", "Replace the roles of a user: ID=ROLE[,ROLE...]")
	disableUser := flag.Int("disable-user", 0, "Soft-delete the user with this id")
	flag.Parse()

	if *help {
		fmt.Println("Usage: kanvas [options]")
		fmt.Println("\nA terminal storefront for an NFT marketplace database.")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	db := cfg.DatabasePath()
	if *dbPath != "" {
		db = *dbPath
	}
	sort := cfg.Listings.Sort
	if *sortFlag != "" {
		sort = model.ListingSort(*sortFlag)
		if !sort.IsValid() {
			fmt.Fprintf(os.Stderr, "Invalid --sort %q\n", *sortFlag)
			os.Exit(2)
		}
	}

	if err := logging.Configure(cfg.LogPath()); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	logging.SetTraceEnabled(cfg.Log.Trace)
	defer logging.Close()

	if err := os.MkdirAll(filepath.Dir(db), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating database directory: %v\n", err)
		os.Exit(1)
	}
	st, err := store.Open(db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	ctx := context.Background()

	if *seedFile != "" {
		seed, err := store.LoadSeedFile(*seedFile)
		if err == nil {
			err = st.ApplySeed(ctx, seed)
		}
		if err != nil {
			fail(st, "Error importing seed: %v", err)
		}
		fmt.Fprintf(os.Stderr, "Imported %d categories, %d NFTs, %d users\n",
			len(seed.Categories), len(seed.NFTs), len(seed.Users))
	}

	switch {
	case *checkCategories:
		healthy, err := checkCategoriesCmd(ctx, os.Stdout, st)
		if err != nil {
			fail(st, "Error checking categories: %v", err)
		}
		if !healthy {
			st.Close()
			os.Exit(1)
		}

	case *listUsers:
		f := model.UserFilter{OrderBy: *orderBy, OrderDirection: model.SortAsc}
		if *desc {
			f.OrderDirection = model.SortDesc
		}
		if f.RoleIDs, err = model.ParseRoles(*roles); err != nil {
			fail(st, "Invalid --roles: %v", err)
		}
		if err := listUsersCmd(ctx, os.Stdout, st, f); err != nil {
			fail(st, "Error listing users: %v", err)
		}

	case *addUser:
		payload, err := userPayload(flag.Args())
		if err != nil {
			fail(st, "Error reading user: %v", err)
		}
		if err := addUserCmd(ctx, os.Stdout, st, payload); err != nil {
			fail(st, "Error creating user: %v", err)
		}

	case *setRoles != "":
		id, roleList, err := parseRoleAssignment(*setRoles)
		if err != nil {
			fail(st, "Invalid --set-roles: %v", err)
		}
		if err := setRolesCmd(ctx, os.Stdout, st, id, roleList); err != nil {
			fail(st, "Error updating roles: %v", err)
		}

	case *disableUser != 0:
		if err := disableUserCmd(ctx, os.Stdout, st, *disableUser); err != nil {
			fail(st, "Error disabling user: %v", err)
		}

	case *listingsJSON:
		ids, err := parseIDs(*categories)
		if err != nil {
			fail(st, "Invalid --categories: %v", err)
		}
		q := model.ListingQuery{OwnerAddress: *owner, Sort: sort, Page: *page, PageSize: cfg.Listings.PageSize}
		if err := listingsCmd(ctx, os.Stdout, st, ids, q); err != nil {
			fail(st, "Error listing NFTs: %v", err)
		}

	case *seedFile != "":
		// Import only.

	default:
		if err := runTUI(cfg, st, db, sort); err != nil {
			fail(st, "Error running storefront: %v", err)
		}
	}
}

// fail prints an error, closes the store and exits with status 1.
func fail(st *store.Store, format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	logging.Error(fmt.Errorf(format, args...))
	st.Close()
	logging.Close()
	os.Exit(1)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return config.Resolve(cwd)
}

func runTUI(cfg *config.Config, st *store.Store, db string, sort model.ListingSort) error {
	watchPath := ""
	if cfg.WatchEnabled() {
		watchPath = db
	}
	worker, err := ui.NewBackgroundWorker(ui.WorkerConfig{
		Catalog:       st,
		DBPath:        watchPath,
		DebounceDelay: cfg.Watch.Debounce,
	})
	if err != nil {
		return err
	}
	defer worker.Stop()

	snap, err := worker.Load()
	if err != nil {
		var malformed *filter.MalformedTreeError
		if errors.As(err, &malformed) {
			if cats, cerr := st.Categories(context.Background()); cerr == nil {
				report := analysis.AnalyzeCategories(cats, analysis.DefaultCycleBreakLimit)
				return fmt.Errorf("%w (%s; run --check-categories for details)", err, report.Summary())
			}
		}
		return err
	}

	m := ui.NewModel(ui.Options{
		Catalog:          st,
		Tree:             snap.Tree,
		Worker:           worker,
		TreeStatePath:    cfg.TreeStatePath(),
		InitialSelection: cfg.InitialSelection,
		PageSize:         cfg.Listings.PageSize,
		Sort:             sort,
	})

	p := tea.NewProgram(m, tea.WithAltScreen())
	worker.SetSender(p)
	if err := worker.Start(); err != nil {
		return err
	}
	_, err = p.Run()
	return err
}

// userPayload returns the JSON of the user to create: the first argument,
// stdin when piped, or the answers of the interactive form.
func userPayload(args []string) ([]byte, error) {
	if len(args) > 0 {
		return []byte(args[0]), nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return io.ReadAll(os.Stdin)
	}
	var u model.NewUser
	if err := ui.NewUserForm(&u).Run(); err != nil {
		return nil, err
	}
	return json.Marshal(u)
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func checkCategoriesCmd(ctx context.Context, w io.Writer, st *store.Store) (bool, error) {
	cats, err := st.Categories(ctx)
	if err != nil {
		return false, err
	}
	report := analysis.AnalyzeCategories(cats, analysis.DefaultCycleBreakLimit)
	if err := writeJSON(w, report); err != nil {
		return false, err
	}
	return report.Healthy(), nil
}

// listingsCmd resolves categories through the filter tree, so a parent id
// selects all of its leaves, and prints one listing page.
func listingsCmd(ctx context.Context, w io.Writer, st *store.Store, categories []int, q model.ListingQuery) error {
	if len(categories) > 0 {
		cats, err := st.Categories(ctx)
		if err != nil {
			return err
		}
		tree, err := filter.BuildFromCategories(cats)
		if err != nil {
			return err
		}
		sel := filter.NewSelector(tree, nil)
		for _, id := range categories {
			if sel.State().IsSelected(id) {
				continue
			}
			if _, err := sel.Toggle(id); err != nil {
				return err
			}
		}
		q.CategoryIDs = sel.SelectedLeaves()
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	p, err := st.FilterNFTs(ctx, q)
	if err != nil {
		return err
	}
	return writeJSON(w, struct {
		model.ListingPage
		Pages int `json:"pages"`
	}{p, p.PageCount()})
}

func listUsersCmd(ctx context.Context, w io.Writer, st *store.Store, f model.UserFilter) error {
	users, total, err := st.FindUsers(ctx, f)
	if err != nil {
		return err
	}
	return writeJSON(w, struct {
		Users []model.User `json:"users"`
		Total int          `json:"total"`
	}{users, total})
}

func addUserCmd(ctx context.Context, w io.Writer, st *store.Store, payload []byte) error {
	var u model.NewUser
	if err := json.Unmarshal(payload, &u); err != nil {
		return fmt.Errorf("parsing user: %w", err)
	}
	created, err := st.CreateUser(ctx, u)
	if err != nil {
		return err
	}
	return writeJSON(w, created)
}

func setRolesCmd(ctx context.Context, w io.Writer, st *store.Store, id int, roles []model.Role) error {
	u, err := st.UpdateUserRoles(ctx, id, roles)
	if err != nil {
		return err
	}
	return writeJSON(w, u)
}

func disableUserCmd(ctx context.Context, w io.Writer, st *store.Store, id int) error {
	if err := st.RemoveUser(ctx, id); err != nil {
		return err
	}
	return writeJSON(w, map[string]any{"id": id, "disabled": true})
}

// parseIDs parses "1, 2,3" into ids.
func parseIDs(s string) ([]int, error) {
	var ids []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// parseRoleAssignment parses "ID=ROLE[,ROLE...]".
func parseRoleAssignment(s string) (int, []model.Role, error) {
	idPart, rolePart, ok := strings.Cut(s, "=")
	if !ok {
		return 0, nil, fmt.Errorf("expected ID=ROLES, got %q", s)
	}
	id, err := strconv.Atoi(strings.TrimSpace(idPart))
	if err != nil || id <= 0 {
		return 0, nil, fmt.Errorf("invalid user id %q", idPart)
	}
	roles, err := model.ParseRoles(rolePart)
	if err != nil {
		return 0, nil, err
	}
	return id, roles, nil
}
