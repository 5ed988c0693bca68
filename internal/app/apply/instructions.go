package apply

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/peebo/peebo/internal/model"
)

var instructionsTpl = template.Must(template.New("instructions").Funcs(template.FuncMap{
	"yesno": func(b bool) string {
		if b {
			return "Yes"
		}
		return "No"
	},
}).Parse(`Apply to the job posting at {{ .JobURL }} and submit the application.

## Applicant
- Name: {{ .Applicant.Name }}
- Email: {{ .Applicant.Email }}
- Phone: {{ .Applicant.Phone }}
- Location: {{ .Applicant.Location }}
- LinkedIn: {{ .Applicant.LinkedIn }}
{{- if .Applicant.ResumePath }}

## Resume File
Upload this file for the resume: {{ .Applicant.ResumePath }}
{{- end }}
{{- if .Applicant.ResumeText }}

## Resume
{{ .Applicant.ResumeText }}
{{- end }}
{{- if or .Applicant.BackgroundSummary .Applicant.KeyAchievements }}

## Applicant Background (use for answering custom questions)
{{- if .Applicant.BackgroundSummary }}
{{ .Applicant.BackgroundSummary }}
{{- end }}
{{- range .Applicant.KeyAchievements }}
- {{ . }}
{{- end }}
{{- end }}

## Work Authorization
- Legally authorized to work in the US: {{ yesno .Applicant.AuthorizedToWorkUS }}
- Requires visa sponsorship now or in the future: {{ yesno .Applicant.RequiresSponsorship }}

## Steps
1. Navigate to {{ .JobURL }}. If the page shows the job description first, open the application form.
2. Scroll through the entire form before filling anything and note every required field (marked with * or "required").
3. Fill the standard fields exactly as provided above.
4. Location fields are often autocomplete comboboxes: type part of the location, wait for the dropdown and select the matching option.
5. Upload the resume in the resume field.
6. Answer work authorization and sponsorship questions with the values above. Ashby renders Yes/No questions as buttons, Lever uses native selects.
7. For optional demographic questions choose "Decline to self-identify" or the closest equivalent.
8. Answer custom questions truthfully using the applicant background.
9. Submit the application and wait for the confirmation page.
10. Report "Application submitted" if you see a confirmation. If you hit a CAPTCHA or can't submit, say so explicitly and explain why.
`))

// RenderInstructions renders the agent instructions for one job.
func RenderInstructions(jobURL string, applicant model.Applicant) (string, error) {
	var b bytes.Buffer
	err := instructionsTpl.Execute(&b, struct {
		JobURL    string
		Applicant model.Applicant
	}{JobURL: jobURL, Applicant: applicant})
	if err != nil {
		return "", fmt.Errorf("could not render instructions: %w", err)
	}
	return b.String(), nil
}
