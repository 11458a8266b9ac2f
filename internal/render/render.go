// Package render prints page data to a terminal. Text that came from the
// backend is stripped of markup before it is shown.
package render

import (
	"fmt"
	"html"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/benvon/homehero/internal/catalog"
	"github.com/benvon/homehero/internal/models"
	"github.com/benvon/homehero/internal/pages"
	"github.com/benvon/homehero/internal/preferences"
)

const (
	ansiReset = "\x1b[0m"
	ansiBold  = "\x1b[1m"
	ansiDim   = "\x1b[2m"
	ansiCyan  = "\x1b[36m"
	ansiBlue  = "\x1b[34m"
)

// Printer writes page data to w. It is not safe for concurrent use.
type Printer struct {
	w      io.Writer
	theme  preferences.Theme
	color  bool
	policy *bluemonday.Policy
}

// NewPrinter returns a Printer. color=false writes plain text.
func NewPrinter(w io.Writer, theme preferences.Theme, color bool) *Printer {
	return &Printer{w: w, theme: theme, color: color, policy: bluemonday.StrictPolicy()}
}

// Clean removes every HTML tag from s and collapses it to one line.
func (p *Printer) Clean(s string) string {
	s = html.UnescapeString(p.policy.Sanitize(s))
	return strings.Join(strings.Fields(s), " ")
}

func (p *Printer) heading(s string) string {
	if !p.color {
		return s
	}
	accent := ansiBlue
	if p.theme == preferences.ThemeDark {
		accent = ansiCyan
	}
	return ansiBold + accent + s + ansiReset
}

func (p *Printer) muted(s string) string {
	if !p.color {
		return s
	}
	return ansiDim + s + ansiReset
}

func (p *Printer) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.w, format, args...)
}

// Price formats a price the way the listings show it.
func Price(v float64) string {
	return "$" + strconv.FormatFloat(v, 'f', 2, 64)
}

func rating(r *float64) string {
	if r == nil {
		return "-"
	}
	return strconv.FormatFloat(*r, 'f', 1, 64)
}

func (p *Printer) table(header string, rows [][]string) {
	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, p.heading(header))
	for _, r := range rows {
		_, _ = fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	_ = tw.Flush()
}

// Services prints a listing table.
func (p *Printer) Services(services []models.Service) {
	if len(services) == 0 {
		p.printf("%s\n", p.muted("No services found"))
		return
	}
	rows := make([][]string, 0, len(services))
	for _, s := range services {
		rows = append(rows, []string{
			s.ID,
			p.Clean(s.ServiceName),
			p.Clean(s.Category),
			Price(s.Price),
			rating(s.AverageRating),
			p.Clean(s.ProviderName),
		})
	}
	p.table("ID\tSERVICE\tCATEGORY\tPRICE\tRATING\tPROVIDER", rows)
}

// Browse prints the browse page with its category choices.
func (p *Printer) Browse(v *pages.ServicesView) {
	p.printf("%s %s\n", p.muted("Categories:"), strings.Join(v.Categories, ", "))
	p.printf("%s\n", p.muted(fmt.Sprintf("Showing %d of %d services", len(v.Visible), len(v.All))))
	p.Services(v.Visible)
}

// Service prints one service with its reviews.
func (p *Printer) Service(s *models.Service) {
	p.printf("%s\n", p.heading(p.Clean(s.ServiceName)))
	p.printf("  Category:  %s\n", p.Clean(s.Category))
	p.printf("  Price:     %s\n", Price(s.Price))
	p.printf("  Rating:    %s (%d reviews)\n", rating(s.AverageRating), len(s.Reviews))
	p.printf("  Provider:  %s <%s>\n", p.Clean(s.ProviderName), s.ProviderEmail)
	if s.ImageURL != "" {
		p.printf("  Image:     %s\n", s.ImageURL)
	}
	p.printf("\n%s\n", p.Clean(s.Description))
	for _, r := range s.Reviews {
		date := ""
		if !r.Date.IsZero() {
			date = " " + r.Date.Format("Jan 2, 2006")
		}
		p.printf("\n  %s %s%s\n    %s\n", strings.Repeat("*", r.Rating), p.Clean(r.UserName), p.muted(date), p.Clean(r.Comment))
	}
}

// MyServices prints a provider's listings with the summary header.
func (p *Printer) MyServices(v *pages.MyServicesView) {
	p.summary(v.Stats)
	p.Services(v.Services)
}

func (p *Printer) summary(s catalog.ProviderSummary) {
	p.printf("%s %d   %s %s   %s %d\n",
		p.muted("Services:"), s.TotalServices,
		p.muted("Average price:"), Price(s.AveragePrice),
		p.muted("Reviews:"), s.TotalReviews)
}

// Bookings prints a customer's bookings with the summary header.
func (p *Printer) Bookings(v *pages.MyBookingsView) {
	p.printf("%s %d   %s %d   %s %s\n",
		p.muted("Bookings:"), v.Stats.Total,
		p.muted("Pending:"), v.Stats.Pending,
		p.muted("Total spent:"), Price(v.Stats.TotalSpent))
	if len(v.Bookings) == 0 {
		p.printf("%s\n", p.muted("No bookings yet"))
		return
	}
	rows := make([][]string, 0, len(v.Bookings))
	for _, b := range v.Bookings {
		reviewed := ""
		if b.HasReviewed {
			reviewed = "reviewed"
		}
		rows = append(rows, []string{b.ID, p.Clean(b.ServiceName), b.BookingDate, string(b.Status), Price(b.Price), reviewed})
	}
	p.table("ID\tSERVICE\tDATE\tSTATUS\tPRICE\t", rows)
}

// Profile prints the profile page.
func (p *Printer) Profile(v *pages.ProfileView) {
	name := v.DisplayName
	if name == "" {
		name = "(no name)"
	}
	p.printf("%s\n", p.heading(p.Clean(name)))
	p.printf("  Email:         %s\n", v.Email)
	p.printf("  Verified:      %t\n", v.EmailVerified)
	if v.PhotoURL != "" {
		p.printf("  Photo:         %s\n", v.PhotoURL)
	}
	if !v.MemberSince.IsZero() {
		p.printf("  Member since:  %s\n", v.MemberSince.Local().Format("January 2, 2006"))
	}
	if v.LastLogin != nil {
		p.printf("  Last login:    %s\n", v.LastLogin.Local().Format(time.RFC1123))
	}
}

// Session prints who is signed in.
func (p *Printer) Session(s models.Session) {
	switch {
	case s.Loading:
		p.printf("%s\n", p.muted("Checking sign-in state..."))
	case s.User == nil:
		p.printf("Not signed in\n")
	default:
		p.printf("Signed in as %s\n", s.User.Email)
	}
}

// Success prints a confirmation line.
func (p *Printer) Success(msg string) {
	p.printf("%s\n", msg)
}
