// Package hostapi talks to code-hosting services.
//
// Two backends implement domain.Host: GitLab through client-go and GitHub
// through go-github. Retries and throttling live in the Retrier, not in
// either SDK. Both report rate limiting as
// *domain.RateLimitError and any other non-success status as *domain.APIError,
// which the Retrier and Diagnose turn into retries and log lines.
package hostapi
