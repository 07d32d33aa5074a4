package validation

import (
	"bufio"
	"bytes"
	_ "embed"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/pmezard/go-difflib/difflib"
)

var (
	pwdMinLen      = 8
	pwdMinLenText  = fmt.Sprintf("This password is too short. It must contain at least %d characters.", pwdMinLen)
	pwdAllNumText  = "This password is entirely numeric."
	pwdCommonText  = "This password is too common."
	pwdMaxSim      = .7
	pwdAttrSimText = "The password is too similar to the %s."

	attrSplitRegex = regexp.MustCompile(`\W+`)
)

//go:embed common-passwords.txt
var commonPasswordsRaw []byte

var commonPasswords = loadCommonPasswords(commonPasswordsRaw)

func loadCommonPasswords(raw []byte) []string {
	pwds := make([]string, 0, 256)
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" && !strings.HasPrefix(line, "#") {
			pwds = append(pwds, strings.ToLower(line))
		}
	}
	sort.Strings(pwds)
	return pwds
}

// UserAttr is a named account attribute the password must not resemble.
type UserAttr struct {
	Name  string
	Value string
}

// Password applies the password policy and returns the first violated rule's message, or "" when pwd is acceptable.
// - minLen: 8
// - not entirely numeric
// - no common password
// - no user attrs similarity
func Password(pwd string, attrs ...UserAttr) string {
	if len([]rune(pwd)) < pwdMinLen {
		return pwdMinLenText
	}

	allNum := true
	for _, char := range pwd {
		if !unicode.IsDigit(char) {
			allNum = false
			break
		}
	}
	if allNum {
		return pwdAllNumText
	}

	lpwd := strings.ToLower(pwd)
	if idx := sort.SearchStrings(commonPasswords, lpwd); idx < len(commonPasswords) && commonPasswords[idx] == lpwd {
		return pwdCommonText
	}

	for _, attr := range attrs {
		if tooSimilar(lpwd, strings.ToLower(attr.Value)) {
			return fmt.Sprintf(pwdAttrSimText, attr.Name)
		}
	}
	return ""
}

// tooSimilar compares the password against the whole attribute and each of its word parts.
func tooSimilar(pwd, attr string) bool {
	if attr == "" {
		return false
	}
	parts := append([]string{attr}, attrSplitRegex.Split(attr, -1)...)
	for _, part := range parts {
		if part == "" {
			continue
		}
		ratio := difflib.NewMatcher(strings.Split(pwd, ""), strings.Split(part, "")).QuickRatio()
		if ratio >= pwdMaxSim {
			return true
		}
	}
	return false
}
