package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/clemjvdm/libcal-cli/internal/cache"
	"github.com/clemjvdm/libcal-cli/internal/config"
	"github.com/clemjvdm/libcal-cli/internal/export"
	"github.com/clemjvdm/libcal-cli/internal/history"
	"github.com/clemjvdm/libcal-cli/internal/libcal"
	"github.com/clemjvdm/libcal-cli/internal/logging"
	"github.com/clemjvdm/libcal-cli/internal/metrics"
	"github.com/clemjvdm/libcal-cli/internal/models"
	"github.com/clemjvdm/libcal-cli/internal/profile"
	"github.com/clemjvdm/libcal-cli/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	dayRe   = regexp.MustCompile(fmt.Sprintf(`^[0-%d]$`, models.MaxDayOffset))
	groupRe = regexp.MustCompile(`^\d+$`)
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`
Usage:
  libcal-cli book <seat> [--day=+N] [--group=SIZE]
  libcal-cli seats [seat] [--day=+N] [--export[=FILE]]
  libcal-cli history [--limit=N]
  libcal-cli checkin <code>
  libcal-cli profile [--fname=<first_name>] [--lname=<last_name>] [--phone=<phone_number>] [--email=<email>] [--snum=<student_number>]`)
	os.Exit(1)
}

func run() error {
	args := os.Args[1:]
	if len(args) == 0 {
		showUsage()
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}
	logger := baseLogger.With().Str("run_id", uuid.NewString()).Logger()

	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch args[0] {
	case "book":
		return cmdBook(ctx, cfg, &logger, args[1:])
	case "seats":
		return cmdSeats(ctx, cfg, &logger, args[1:])
	case "history":
		return cmdHistory(ctx, cfg, args[1:])
	case "profile":
		return cmdProfile(cfg, args[1:])
	case "checkin":
		if len(args) != 2 {
			fmt.Fprintln(os.Stderr, `Error: "checkin" requires a <code> argument.`)
			showUsage()
		}
		fmt.Println("checkin is not implemented yet")
		return nil
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
		showUsage()
	}
	return nil
}

// parseBookArgs handles the optional --day and --group arguments shared by
// the book and seats commands.
func parseBookArgs(args []string) (day, group int) {
	group = 1
	for _, arg := range args {
		switch {
		case strings.HasPrefix(arg, "--day=+"):
			value := strings.TrimPrefix(arg, "--day=+")
			if !dayRe.MatchString(value) {
				fmt.Fprintf(os.Stderr, "Invalid --day value: %s\n", value)
				os.Exit(1)
			}
			day, _ = strconv.Atoi(value)
		case strings.HasPrefix(arg, "--group="):
			value := strings.TrimPrefix(arg, "--group=")
			if !groupRe.MatchString(value) {
				fmt.Fprintf(os.Stderr, "Invalid --group value: %s\n", value)
				os.Exit(1)
			}
			group, _ = strconv.Atoi(value)
		default:
			fmt.Fprintf(os.Stderr, "Unknown argument: %s\n", arg)
			showUsage()
		}
	}
	return day, group
}

func buildClient(cfg *config.Config, logger *zerolog.Logger) (*libcal.Client, error) {
	var opts []libcal.Option
	if cfg.Cache.Enabled {
		primary := cache.NewRedisStore(cache.NewRedisClient(cfg.Redis))
		store := cache.NewFailoverStore(primary, cache.NewMemoryStore(), logger)
		opts = append(opts, libcal.WithSnapshotCache(store, cfg.Cache.TTL))
	}
	return libcal.NewClient(cfg.Service, logger, opts...)
}

func cmdBook(ctx context.Context, cfg *config.Config, logger *zerolog.Logger, args []string) error {
	if len(args) < 1 {
		showUsage()
	}
	seatName := args[0]
	day, group := parseBookArgs(args[1:])

	store, err := profile.DefaultStore()
	if err != nil {
		return err
	}
	prof, err := store.Load()
	if errors.Is(err, profile.ErrNotFound) {
		fmt.Println("Profile not found. Run `libcal-cli profile --email=<email> --phone=<phone> --snum=<student_number>` to set it up.")
		return nil
	}
	if err != nil {
		return err
	}
	if err := prof.Validate(cfg.Booking.EmailDomain); err != nil {
		fmt.Println("Profile incomplete or invalid:", err)
		fmt.Println("Run `libcal-cli profile` to view which attributes are missing")
		return nil
	}

	client, err := buildClient(cfg, logger)
	if err != nil {
		return err
	}

	journal, err := history.NewDB(cfg.History.Path)
	if err != nil {
		logger.Warn().Err(err).Msg("booking history unavailable")
		journal = nil
	} else {
		defer journal.Close()
	}

	// the interface value must stay nil when the journal is absent
	var journalIface service.Journal
	if journal != nil {
		journalIface = journal
	}

	svc := service.NewBookingService(client, journalIface, cfg.Booking, logger)

	if group > 1 {
		results, err := svc.BookGroup(ctx, seatName, day, group, prof)
		saveProfile(store, prof)
		if err != nil {
			fmt.Println(err)
			return nil
		}
		for _, r := range results {
			if r.Err != nil {
				fmt.Printf("Failed to book seat %s: %v\n", r.Seat, r.Err)
				continue
			}
			fmt.Printf("Booked seat %s from %s until %s.\n", r.Result.Seat, r.Result.Start, r.Result.End)
		}
		return nil
	}

	result, err := svc.Book(ctx, seatName, day, prof)
	saveProfile(store, prof)
	if err != nil {
		fmt.Println(err)
		return nil
	}
	fmt.Printf("Booked seat %s from %s until %s.\n", result.Seat, result.Start, result.End)
	return nil
}

// saveProfile persists the attempt counter after every invocation; losing
// an increment would reuse an email alias and make the service deduplicate
// a later booking.
func saveProfile(store *profile.Store, prof *models.Profile) {
	if err := store.Save(prof); err != nil {
		fmt.Println("Failed to save profile after booking.")
		fmt.Println("This may result in errors when trying to make more bookings, to mitigate these cancel current booking(s).")
	}
}

func cmdSeats(ctx context.Context, cfg *config.Config, logger *zerolog.Logger, args []string) error {
	seatName := ""
	doExport := false
	exportPath := ""
	rest := args
	if len(args) > 0 && !strings.HasPrefix(args[0], "--") {
		seatName = args[0]
		rest = args[1:]
	}

	var dayArgs []string
	for _, arg := range rest {
		switch {
		case arg == "--export":
			doExport = true
		case strings.HasPrefix(arg, "--export="):
			doExport = true
			exportPath = strings.TrimPrefix(arg, "--export=")
			if exportPath == "" {
				fmt.Fprintln(os.Stderr, "Invalid --export value: empty path")
				os.Exit(1)
			}
		default:
			dayArgs = append(dayArgs, arg)
		}
	}
	day, _ := parseBookArgs(dayArgs)

	client, err := buildClient(cfg, logger)
	if err != nil {
		return err
	}

	date := todayPlus(day)
	seats, err := client.GetSeats(ctx, date)
	if err != nil {
		return err
	}

	matches := service.FilterByPrefix(seats, seatName)
	service.AnnotateDurations(matches)
	if len(matches) == 0 {
		fmt.Println("No seat matching the criteria was found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SEAT\tFIRST FREE\tLAST FREE\tSPAN")
	for _, seat := range matches {
		first := seat.Availabilities[0].Start
		last := seat.Availabilities[len(seat.Availabilities)-1].End
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", seat.Title, first, last, seat.Duration)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if doExport {
		dateStr := date.Format("2006-01-02")
		path := exportPath
		if path == "" {
			path, err = export.SeatsToExcel(cfg.Exports.Path, dateStr, matches)
		} else {
			err = export.SeatsToFile(path, dateStr, matches)
		}
		if err != nil {
			return err
		}
		fmt.Printf("Exported availability to %s\n", path)
	}
	return nil
}

func cmdHistory(ctx context.Context, cfg *config.Config, args []string) error {
	limit := 20
	for _, arg := range args {
		if strings.HasPrefix(arg, "--limit=") {
			v, err := strconv.Atoi(strings.TrimPrefix(arg, "--limit="))
			if err != nil || v <= 0 {
				fmt.Fprintf(os.Stderr, "Invalid --limit value: %s\n", strings.TrimPrefix(arg, "--limit="))
				os.Exit(1)
			}
			limit = v
			continue
		}
		fmt.Fprintf(os.Stderr, "Unknown argument: %s\n", arg)
		showUsage()
	}

	journal, err := history.NewDB(cfg.History.Path)
	if err != nil {
		return err
	}
	defer journal.Close()

	attempts, err := journal.ListAttempts(ctx, limit)
	if err != nil {
		return err
	}
	if len(attempts) == 0 {
		fmt.Println("No booking attempts recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tSEAT\tSTATUS\tALIAS\tDETAIL")
	for _, a := range attempts {
		detail := a.Error
		if a.Status == history.StatusConfirmed {
			detail = fmt.Sprintf("%s - %s", a.Start, a.End)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			a.CreatedAt.Local().Format("2006-01-02 15:04"), a.Seat, a.Status, a.EmailAlias, detail)
	}
	return w.Flush()
}

func cmdProfile(cfg *config.Config, args []string) error {
	store, err := profile.DefaultStore()
	if err != nil {
		return err
	}

	prof, err := store.Load()
	if err != nil {
		prof = &models.Profile{}
	}

	if len(args) == 0 {
		fmt.Println("first name: ", prof.FirstName)
		fmt.Println("last name: ", prof.LastName)
		fmt.Println("phone number: ", prof.Phone)
		fmt.Println("email: ", prof.Email)
		fmt.Println("student number: ", prof.StudentNumber)
		return nil
	}

	for _, arg := range args {
		switch {
		case strings.HasPrefix(arg, "--email="):
			value := strings.TrimPrefix(arg, "--email=")
			if !models.ValidEmail(value, cfg.Booking.EmailDomain) {
				fmt.Fprintf(os.Stderr, "Invalid --email value: %s\n", value)
				continue
			}
			prof.Email = value
			fmt.Println("Updated email address.")
		case strings.HasPrefix(arg, "--phone="):
			value := strings.TrimPrefix(arg, "--phone=")
			if !models.ValidPhone(value) {
				fmt.Fprintf(os.Stderr, "Invalid --phone value: %s\n", value)
				continue
			}
			prof.Phone = value
			fmt.Println("Updated phone number.")
		case strings.HasPrefix(arg, "--fname="):
			prof.FirstName = strings.TrimPrefix(arg, "--fname=")
			fmt.Println("Updated first name.")
		case strings.HasPrefix(arg, "--lname="):
			prof.LastName = strings.TrimPrefix(arg, "--lname=")
			fmt.Println("Updated last name.")
		case strings.HasPrefix(arg, "--snum="):
			value := strings.TrimPrefix(arg, "--snum=")
			if !models.ValidStudentNumber(value) {
				fmt.Fprintf(os.Stderr, "Invalid --snum value: %s\n", value)
				continue
			}
			prof.StudentNumber = value
			fmt.Println("Updated student number.")
		default:
			fmt.Fprintf(os.Stderr, "Unknown argument: %s ignored\n", arg)
		}
	}

	return store.Save(prof)
}

func todayPlus(days int) time.Time {
	return time.Now().AddDate(0, 0, days)
}
