package bulk

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"aum/internal/umapi"
	"aum/internal/validation"
)

// Column headers recognized in provisioning files. Header matching is
// case-insensitive; unknown columns are ignored so exported spreadsheets
// with extra fields load without editing.
const (
	colEmail     = "email"
	colFirstName = "firstname"
	colLastName  = "lastname"
	colCountry   = "country"
	colProducts  = "products"
	colGroups    = "groups"
)

// listSeparator splits multi-valued cells (products, groups)
const listSeparator = "|"

// LoadUsersCSV reads a provisioning file into users ready for batch
// dispatch. The first row must be a header naming at least the email
// column. Rows are validated as they are read; the first invalid row
// aborts the load with its line number so the file can be fixed before
// any API call is made.
func LoadUsersCSV(path string) ([]umapi.User, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header from %s: %w", path, err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := columns[colEmail]; !ok {
		return nil, fmt.Errorf("%s is missing the required %q column", path, colEmail)
	}

	var users []umapi.User
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s line %d: %w", path, line, err)
		}

		user := umapi.User{
			Email:     cell(record, columns, colEmail),
			FirstName: cell(record, columns, colFirstName),
			LastName:  cell(record, columns, colLastName),
			Country:   cell(record, columns, colCountry),
			Products:  splitList(cell(record, columns, colProducts)),
			Groups:    splitList(cell(record, columns, colGroups)),
		}

		if user.Email == "" {
			continue // blank padding row
		}
		if err := user.Validate(); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		users = append(users, user)
	}

	if len(users) == 0 {
		return nil, fmt.Errorf("%s contains no user rows", path)
	}
	return users, nil
}

// LoadEmailsCSV reads a deprovisioning file. Only the email column is
// consulted, so an export with just one column works.
func LoadEmailsCSV(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header from %s: %w", path, err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := columns[colEmail]; !ok {
		return nil, fmt.Errorf("%s is missing the required %q column", path, colEmail)
	}

	var emails []string
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s line %d: %w", path, line, err)
		}

		email := cell(record, columns, colEmail)
		if email == "" {
			continue
		}
		if err := validation.ValidateEmail(email); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		emails = append(emails, email)
	}

	if len(emails) == 0 {
		return nil, fmt.Errorf("%s contains no user rows", path)
	}
	return emails, nil
}

func cell(record []string, columns map[string]int, name string) string {
	idx, ok := columns[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, listSeparator)
	var out []string
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
