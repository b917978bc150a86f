package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	gsheets "google.golang.org/api/sheets/v4"
	"google.golang.org/api/option"

	"github.com/yuuki999/ai-line-bot/internal/domain"
)

const defaultRange = "シート1"

// auditTimezone is the fixed +9h offset audit timestamps are recorded in.
var auditTimezone = time.FixedZone("UTC+9", 9*60*60)

// appendAPI is the minimal Sheets interface required by Logger.
// Defined here for testability.
type appendAPI interface {
	Append(ctx context.Context, spreadsheetID, rangeA1 string, values [][]interface{}) error
}

// Logger appends question/answer audit rows to a fixed spreadsheet range.
// Writes are append-only with no dedup; at-least-once on platform retries.
type Logger struct {
	api           appendAPI
	spreadsheetID string
	rangeA1       string
	now           func() time.Time
}

type Option func(*Logger)

// WithRange overrides the default sheet range.
func WithRange(rangeA1 string) Option {
	return func(l *Logger) {
		l.rangeA1 = strings.TrimSpace(rangeA1)
	}
}

// WithClock overrides the time source. Tests only.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) {
		l.now = now
	}
}

// NewLogger creates a Logger writing to the given spreadsheet.
func NewLogger(api appendAPI, spreadsheetID string, opts ...Option) (*Logger, error) {
	if api == nil {
		return nil, errors.New("sheets: api must not be nil")
	}
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("sheets: spreadsheet id must not be empty")
	}
	l := &Logger{
		api:           api,
		spreadsheetID: spreadsheetID,
		rangeA1:       defaultRange,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Record appends one audit row. The stored timestamp is the current instant
// shifted to UTC+9 and formatted "YYYY-MM-DD HH:MM:SS" with no zone suffix.
func (l *Logger) Record(ctx context.Context, rec domain.AuditRecord) error {
	rec.Timestamp = FormatTimestamp(l.now())
	row := []interface{}{rec.UserName, rec.UserID, rec.Question, rec.Timestamp, rec.Answer}
	if err := l.api.Append(ctx, l.spreadsheetID, l.rangeA1, [][]interface{}{row}); err != nil {
		return fmt.Errorf("sheets: append audit row: %w", err)
	}
	return nil
}

// FormatTimestamp renders t in the fixed +9h audit offset.
func FormatTimestamp(t time.Time) string {
	return t.In(auditTimezone).Format("2006-01-02 15:04:05")
}

// GoogleAPI implements appendAPI against the Sheets v4 service with
// service-account credentials.
type GoogleAPI struct {
	svc *gsheets.Service
}

// NewGoogleAPI creates a GoogleAPI from service-account JSON credentials.
func NewGoogleAPI(ctx context.Context, credentialsJSON []byte) (*GoogleAPI, error) {
	if len(credentialsJSON) == 0 {
		return nil, errors.New("sheets: credentials must not be empty")
	}
	conf, err := google.JWTConfigFromJSON(credentialsJSON, gsheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("sheets: parse service account credentials: %w", err)
	}
	svc, err := gsheets.NewService(ctx, option.WithHTTPClient(conf.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("sheets: create sheets service: %w", err)
	}
	return &GoogleAPI{svc: svc}, nil
}

// Append inserts new rows at the end of the range with USER_ENTERED parsing.
func (g *GoogleAPI) Append(ctx context.Context, spreadsheetID, rangeA1 string, values [][]interface{}) error {
	_, err := g.svc.Spreadsheets.Values.
		Append(spreadsheetID, rangeA1, &gsheets.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append values: %w", err)
	}
	return nil
}
