// Package redact removes sensitive information from strings before they are
// logged or returned in error responses. It covers completion service API
// keys, database connection strings, file paths, SQL fragments and other
// details that upstream errors tend to carry.
package redact

import "regexp"

// Redaction placeholders.
const (
	RedactionPlaceholder          = "[REDACTED]"
	RedactedPathPlaceholder       = "[REDACTED_PATH]"
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
)

type rule struct {
	re          *regexp.Regexp
	placeholder string
}

var (
	dbConnRegex = regexp.MustCompile(`(?i)(postgres|postgresql|db|database|connection)://[^@\s]+@`)

	passwordRegex = regexp.MustCompile(`(?i)(password|passwd|pwd)([=:\s]?['"]?)[^'"&\s]{3,}`)
	bearerRegex   = regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9_\-.~+/=]{8,}`)
	// Groq keys start with gsk_, Google API keys with AIza, OpenAI style keys with sk-.
	providerKeyRegex = regexp.MustCompile(`\b(?:gsk_[A-Za-z0-9]{16,}|AIza[A-Za-z0-9_\-]{30,}|sk-[A-Za-z0-9_\-]{16,})`)
	apiKeyRegex      = regexp.MustCompile(
		`(?i)(api[_-]?key|token|secret|key|access|auth)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`,
	)

	unixPathRegex = regexp.MustCompile(`(/[\w.-]+){2,}`)
	winPathRegex  = regexp.MustCompile(`[A-Za-z]:\\[^\\]+(\\[^\\]+)+`)

	stackTraceRegex = regexp.MustCompile(`(?:goroutine \d+|panic:)[\s\S]*?(\n\t.*)+`)
	emailRegex      = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	sqlRegex        = regexp.MustCompile(
		`(?i)(SELECT|INSERT|UPDATE|DELETE|CREATE|ALTER|DROP|GRANT)[\s\w,*()]+(?:FROM|INTO|SET|TABLE|DATABASE|SCHEMA|VIEW)(?:[\s\w,*()='"]+)?`,
	)
	lineNumberRegex  = regexp.MustCompile(`(?:at )?line ?\d+`)
	syntaxErrorRegex = regexp.MustCompile(`(?i)syntax error|syntax problem|parse error`)
	hostPortRegex    = regexp.MustCompile(
		`\b(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}(?::\d{1,5})?\b`,
	)
	fileErrorRegex = regexp.MustCompile(`(?i)(?:no such file|file not found|can't open|cannot open|file error)`)

	// Order matters: specific credential shapes run before the generic ones.
	credentialRules = []rule{
		{dbConnRegex, RedactedCredentialPlaceholder},
		{passwordRegex, RedactedCredentialPlaceholder},
		{bearerRegex, "Bearer " + RedactedKeyPlaceholder},
		{providerKeyRegex, RedactedKeyPlaceholder},
		{apiKeyRegex, RedactedKeyPlaceholder},
	}

	detailRules = []rule{
		{unixPathRegex, RedactedPathPlaceholder},
		{winPathRegex, RedactedPathPlaceholder},
		{stackTraceRegex, "[STACK_TRACE_REDACTED]"},
		{emailRegex, "[REDACTED_EMAIL]"},
		{sqlRegex, "[REDACTED_SQL]"},
		{lineNumberRegex, "[REDACTED_LINE_NUMBER]"},
		{syntaxErrorRegex, "[REDACTED_SYNTAX_ERROR]"},
		{hostPortRegex, "[REDACTED_HOST]"},
		{fileErrorRegex, "[REDACTED_FILE_ERROR]"},
	}
)

func apply(input string, rules []rule) string {
	for _, r := range rules {
		input = r.re.ReplaceAllString(input, r.placeholder)
	}
	return input
}

// Credentials redacts only secrets: connection string credentials,
// passwords, bearer tokens and API keys. Use it where the rest of the
// message is still useful, such as upstream service errors.
func Credentials(input string) string {
	if input == "" {
		return input
	}
	return apply(input, credentialRules)
}

// String redacts secrets and every implementation detail it recognizes.
func String(input string) string {
	if input == "" {
		return input
	}
	return apply(apply(input, credentialRules), detailRules)
}

// Error redacts sensitive information from an error's Error() output.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
