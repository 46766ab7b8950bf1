package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"github.com/kursadbilgin/application-notifier/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

const dateLayout = "Jan 2, 2006 15:04 UTC"

// Email is a rendered message ready for a provider.
type Email struct {
	Subject string
	HTML    string
}

// InstantPayload feeds the new-application email sent to admins.
type InstantPayload struct {
	RecipientName string
	Application   domain.ApplicationSummary
	Branding      *domain.EmailBranding
}

// DigestPayload feeds the periodic summary email.
type DigestPayload struct {
	RecipientName      string
	Frequency          domain.DigestFrequency
	TotalApplications  int
	JobCount           int
	TenderCount        int
	JobApplications    []domain.ApplicationSummary
	TenderApplications []domain.ApplicationSummary
	Branding           *domain.EmailBranding
}

// StatusUpdatePayload feeds the applicant-facing status email.
type StatusUpdatePayload struct {
	RecipientName     string
	Application       domain.ApplicationSummary
	NewStatus         domain.ApplicationStatus
	CustomMessage     string
	NextSteps         []string
	InterviewDate     *time.Time
	InterviewLocation string
	Branding          *domain.EmailBranding
}

// Renderer turns payloads into HTML emails. It holds no per-call state.
type Renderer struct {
	dashboardURL string
	templates    *template.Template
}

func NewRenderer(dashboardURL string) (*Renderer, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(dashboardURL), "/")
	if trimmed != "" && !domain.IsHTTPURL(trimmed) {
		return nil, fmt.Errorf("invalid dashboard url %q", dashboardURL)
	}

	tmpl, err := template.New("email").Funcs(template.FuncMap{
		"date":       formatDate,
		"buttonArgs": newButtonView,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}

	return &Renderer{
		dashboardURL: trimmed,
		templates:    tmpl,
	}, nil
}

type brandView struct {
	PrimaryColor   template.CSS
	SecondaryColor template.CSS
	LogoURL        string
	CompanyName    string
	Website        string
	SupportEmail   string
}

type buttonView struct {
	Link  string
	Label string
	Color template.CSS
}

func newButtonView(link string, label string, color template.CSS) buttonView {
	return buttonView{Link: link, Label: label, Color: color}
}

type itemView struct {
	Title         string
	ApplicantName string
	Email         string
	AppliedAt     time.Time
	Status        string
	Link          string
}

type instantView struct {
	Brand         brandView
	RecipientName string
	KindLabel     string
	Item          itemView
	DashboardLink string
}

type digestSection struct {
	Label     string
	Count     int
	Items     []itemView
	Remaining int
}

type digestView struct {
	Brand          brandView
	RecipientName  string
	FrequencyLabel string
	Total          int
	Sections       []digestSection
	DashboardLink  string
}

type statusView struct {
	Brand             brandView
	RecipientName     string
	Heading           string
	Intro             string
	Title             string
	StatusLabel       string
	CustomMessage     string
	NextSteps         []string
	InterviewDate     *time.Time
	InterviewLocation string
}

func (r *Renderer) RenderInstant(p InstantPayload) (Email, error) {
	kindLabel := p.Application.Kind.Label()
	view := instantView{
		Brand:         newBrandView(p.Branding),
		RecipientName: strings.TrimSpace(p.RecipientName),
		KindLabel:     kindLabel,
		Item:          r.newItemView(p.Application),
		DashboardLink: r.applicationsLink(p.Application.Kind),
	}

	html, err := r.execute("instant", view)
	if err != nil {
		return Email{}, err
	}

	return Email{
		Subject: fmt.Sprintf("New %s application: %s", kindLabel, subjectTitle(p.Application.Title)),
		HTML:    html,
	}, nil
}

func (r *Renderer) RenderDigest(p DigestPayload) (Email, error) {
	view := digestView{
		Brand:          newBrandView(p.Branding),
		RecipientName:  strings.TrimSpace(p.RecipientName),
		FrequencyLabel: p.Frequency.Label(),
		Total:          p.TotalApplications,
		DashboardLink:  r.dashboardURL,
	}
	if p.JobCount > 0 || len(p.JobApplications) > 0 {
		view.Sections = append(view.Sections, r.newDigestSection("Job Applications", p.JobCount, p.JobApplications))
	}
	if p.TenderCount > 0 || len(p.TenderApplications) > 0 {
		view.Sections = append(view.Sections, r.newDigestSection("Tender Applications", p.TenderCount, p.TenderApplications))
	}

	html, err := r.execute("digest", view)
	if err != nil {
		return Email{}, err
	}

	noun := "applications"
	if p.TotalApplications == 1 {
		noun = "application"
	}

	return Email{
		Subject: fmt.Sprintf("%s digest: %d new %s", p.Frequency.Label(), p.TotalApplications, noun),
		HTML:    html,
	}, nil
}

func (r *Renderer) RenderStatusUpdate(p StatusUpdatePayload) (Email, error) {
	title := subjectTitle(p.Application.Title)
	sc := statusCopyFor(p.NewStatus)

	nextSteps := make([]string, 0, len(p.NextSteps))
	for _, step := range p.NextSteps {
		if trimmed := strings.TrimSpace(step); trimmed != "" {
			nextSteps = append(nextSteps, trimmed)
		}
	}

	view := statusView{
		Brand:             newBrandView(p.Branding),
		RecipientName:     strings.TrimSpace(p.RecipientName),
		Heading:           sc.heading,
		Intro:             fmt.Sprintf(sc.intro, title),
		Title:             title,
		StatusLabel:       p.NewStatus.Label(),
		CustomMessage:     strings.TrimSpace(p.CustomMessage),
		NextSteps:         nextSteps,
		InterviewDate:     p.InterviewDate,
		InterviewLocation: strings.TrimSpace(p.InterviewLocation),
	}

	html, err := r.execute("status_update", view)
	if err != nil {
		return Email{}, err
	}

	return Email{
		Subject: fmt.Sprintf(sc.subject, title),
		HTML:    html,
	}, nil
}

func (r *Renderer) execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s email: %w", name, err)
	}
	return buf.String(), nil
}

func (r *Renderer) newDigestSection(label string, count int, items []domain.ApplicationSummary) digestSection {
	views := make([]itemView, 0, len(items))
	for _, item := range items {
		views = append(views, r.newItemView(item))
	}
	remaining := count - len(views)
	if remaining < 0 {
		remaining = 0
	}
	return digestSection{
		Label:     label,
		Count:     count,
		Items:     views,
		Remaining: remaining,
	}
}

func (r *Renderer) newItemView(s domain.ApplicationSummary) itemView {
	status := ""
	if s.Status.IsValid() {
		status = s.Status.Label()
	}
	return itemView{
		Title:         strings.TrimSpace(s.Title),
		ApplicantName: strings.TrimSpace(s.ApplicantName),
		Email:         strings.TrimSpace(s.ApplicantEmail),
		AppliedAt:     s.AppliedAt,
		Status:        status,
		Link:          r.applicationsLink(s.Kind),
	}
}

func (r *Renderer) applicationsLink(kind domain.ApplicationKind) string {
	if r.dashboardURL == "" || !kind.IsValid() {
		return r.dashboardURL
	}
	return r.dashboardURL + "/admin/" + url.PathEscape(kind.String()) + "-applications"
}

func newBrandView(b *domain.EmailBranding) brandView {
	resolved := domain.DefaultBranding()
	if b != nil {
		resolved = b.WithDefaults()
	}

	return brandView{
		// Colors are restricted to hex literals by WithDefaults.
		PrimaryColor:   template.CSS(resolved.PrimaryColor),
		SecondaryColor: template.CSS(resolved.SecondaryColor),
		LogoURL:        resolved.LogoURL,
		CompanyName:    resolved.CompanyName,
		Website:        resolved.Website,
		SupportEmail:   resolved.SupportEmail,
	}
}

func formatDate(t any) string {
	switch v := t.(type) {
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.UTC().Format(dateLayout)
	case *time.Time:
		if v == nil || v.IsZero() {
			return ""
		}
		return v.UTC().Format(dateLayout)
	}
	return ""
}

func subjectTitle(title string) string {
	trimmed := strings.Join(strings.Fields(title), " ")
	if trimmed == "" {
		return "untitled posting"
	}
	return trimmed
}
