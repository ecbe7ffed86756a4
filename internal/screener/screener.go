// Storegate - Storefront Authentication and Request Protection Core
// Copyright 2026 Storegate Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/storegate-dev/storegate

// Package screener flags request values that look like SQL injection or
// cross-site scripting payloads. It is a tripwire in front of the real
// defenses (parameterized queries, output encoding), not a substitute for
// them: matching is deliberately biased against false positives so that
// ordinary storefront input, including names with apostrophes, passes.
package screener

import (
	"net/url"
	"regexp"
)

// Threat classifies why a value was flagged.
type Threat string

const (
	ThreatNone         Threat = ""
	ThreatSQLInjection Threat = "sql_injection"
	ThreatXSS          Threat = "xss"
)

// sqlPatterns match structural SQL fragments, not stray punctuation. A
// lone quote never matches; it takes a keyword, a tautology, or a stacked
// statement to trip these.
var sqlPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bunion\b.{0,20}\bselect\b`),
	regexp.MustCompile(`(?i)\bselect\b.{0,40}\bfrom\b`),
	regexp.MustCompile(`(?i)\binsert\s+into\b`),
	regexp.MustCompile(`(?i)\bdelete\s+from\b`),
	regexp.MustCompile(`(?i)\bdrop\s+(table|database|index|view)\b`),
	regexp.MustCompile(`(?i)\btruncate\s+table\b`),
	regexp.MustCompile(`(?i)\bupdate\b.{0,40}\bset\b.{0,40}=`),
	regexp.MustCompile(`(?i)\b(or|and)\s+\d+\s*=\s*\d+`),
	regexp.MustCompile(`(?i)'\s*(or|and)\s+'?[\w\s]*'?\s*=`),
	regexp.MustCompile(`(?i);\s*(drop|delete|insert|update|truncate|alter|exec)\b`),
	regexp.MustCompile(`(?i)\bexec\s*\(\s*`),
	regexp.MustCompile(`(?i)\bxp_cmdshell\b`),
	regexp.MustCompile(`(?i)\bwaitfor\s+delay\b`),
	regexp.MustCompile(`(?i)\bsleep\s*\(\s*\d`),
	regexp.MustCompile(`(?i)\bbenchmark\s*\(`),
	regexp.MustCompile(`(?i)\binformation_schema\b`),
	regexp.MustCompile(`(?i)\bload_file\s*\(`),
	regexp.MustCompile(`(?i)\binto\s+(out|dump)file\b`),
}

// xssPatterns match markup and handler constructs that have no place in
// form fields or query strings.
var xssPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<\s*/?\s*script\b`),
	regexp.MustCompile(`(?i)<\s*(iframe|embed|object|svg|frame|frameset|applet)\b`),
	regexp.MustCompile(`(?i)<\s*\w[^>]*\bon\w+\s*=`),
	regexp.MustCompile(`(?i)javascript\s*:`),
	regexp.MustCompile(`(?i)vbscript\s*:`),
	regexp.MustCompile(`(?i)data\s*:\s*text/html`),
	regexp.MustCompile(`(?i)expression\s*\(`),
	regexp.MustCompile(`(?i)document\s*\.\s*(cookie|location|write)`),
	regexp.MustCompile(`(?i)window\s*\.\s*location`),
	regexp.MustCompile(`(?i)\beval\s*\(`),
	regexp.MustCompile(`(?i)srcdoc\s*=`),
	regexp.MustCompile(`(?i)base64\s*,\s*[a-z0-9+/=]{20,}`),
}

// Classify returns the threat category of a value, or ThreatNone.
// SQL patterns are consulted first; the category only matters for
// logging, a flagged value is rejected either way.
func Classify(value string) Threat {
	for _, p := range sqlPatterns {
		if p.MatchString(value) {
			return ThreatSQLInjection
		}
	}
	for _, p := range xssPatterns {
		if p.MatchString(value) {
			return ThreatXSS
		}
	}
	return ThreatNone
}

// LooksMalicious reports whether a value matches any threat pattern.
func LooksMalicious(value string) bool {
	return Classify(value) != ThreatNone
}

// ScreenValues checks every value in a decoded query or form set. It
// returns the offending parameter name and its threat, or ThreatNone when
// everything passes. Keys are screened too: attackers sometimes smuggle
// payloads through parameter names.
func ScreenValues(values url.Values) (string, Threat) {
	for key, list := range values {
		if threat := Classify(key); threat != ThreatNone {
			return key, threat
		}
		for _, value := range list {
			if threat := Classify(value); threat != ThreatNone {
				return key, threat
			}
		}
	}
	return "", ThreatNone
}
