package bulk

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}
	return path
}

func TestLoadUsersCSV(t *testing.T) {
	path := writeCSV(t, `email,firstname,lastname,country,products,groups
alice@example.com,Alice,Anders,US,Photoshop CC|Illustrator CC,Designers
bob@example.com,Bob,Berg,DE,,
`)

	users, err := LoadUsersCSV(path)
	if err != nil {
		t.Fatalf("LoadUsersCSV returned error: %v", err)
	}

	if len(users) != 2 {
		t.Fatalf("Expected 2 users, got %d", len(users))
	}

	alice := users[0]
	if alice.Email != "alice@example.com" || alice.FirstName != "Alice" || alice.Country != "US" {
		t.Errorf("Unexpected first user: %+v", alice)
	}
	if len(alice.Products) != 2 || alice.Products[1] != "Illustrator CC" {
		t.Errorf("Expected pipe-separated products parsed, got %v", alice.Products)
	}
	if len(alice.Groups) != 1 || alice.Groups[0] != "Designers" {
		t.Errorf("Expected groups parsed, got %v", alice.Groups)
	}

	bob := users[1]
	if bob.Products != nil || bob.Groups != nil {
		t.Errorf("Expected empty cells to stay nil, got %+v", bob)
	}
}

func TestLoadUsersCSVReorderedColumns(t *testing.T) {
	path := writeCSV(t, `Country,Email,LastName,FirstName
FR,carol@example.com,Clark,Carol
`)

	users, err := LoadUsersCSV(path)
	if err != nil {
		t.Fatalf("LoadUsersCSV returned error: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("Expected 1 user, got %d", len(users))
	}
	if users[0].Email != "carol@example.com" || users[0].Country != "FR" || users[0].FirstName != "Carol" {
		t.Errorf("Header mapping failed: %+v", users[0])
	}
}

func TestLoadUsersCSVSkipsBlankRows(t *testing.T) {
	path := writeCSV(t, `email,firstname,lastname
dave@example.com,Dave,Diaz
,,
erin@example.com,Erin,Estes
`)

	users, err := LoadUsersCSV(path)
	if err != nil {
		t.Fatalf("LoadUsersCSV returned error: %v", err)
	}
	if len(users) != 2 {
		t.Errorf("Expected blank row skipped, got %d users", len(users))
	}
}

func TestLoadUsersCSVRejectsInvalidRow(t *testing.T) {
	path := writeCSV(t, `email,firstname,lastname
good@example.com,Good,User
not-an-email,Bad,User
`)

	_, err := LoadUsersCSV(path)
	if err == nil {
		t.Fatal("Expected error for invalid email row")
	}
	if !strings.Contains(err.Error(), "line 3") {
		t.Errorf("Expected the failing line number in the error, got %v", err)
	}
}

func TestLoadUsersCSVRequiresEmailColumn(t *testing.T) {
	path := writeCSV(t, `firstname,lastname
Frank,Frost
`)

	if _, err := LoadUsersCSV(path); err == nil {
		t.Fatal("Expected error for missing email column")
	}
}

func TestLoadUsersCSVEmptyFile(t *testing.T) {
	path := writeCSV(t, `email,firstname,lastname
`)

	if _, err := LoadUsersCSV(path); err == nil {
		t.Fatal("Expected error for file with no user rows")
	}
}

func TestLoadUsersCSVMissingFile(t *testing.T) {
	if _, err := LoadUsersCSV(filepath.Join(t.TempDir(), "nope.csv")); err == nil {
		t.Fatal("Expected error for missing file")
	}
}

func TestLoadEmailsCSV(t *testing.T) {
	path := writeCSV(t, `email
gina@example.com
hank@example.com
`)

	emails, err := LoadEmailsCSV(path)
	if err != nil {
		t.Fatalf("LoadEmailsCSV returned error: %v", err)
	}
	if len(emails) != 2 || emails[0] != "gina@example.com" {
		t.Errorf("Unexpected emails: %v", emails)
	}
}

func TestLoadEmailsCSVRejectsInvalidEmail(t *testing.T) {
	path := writeCSV(t, `email
broken-address
`)

	if _, err := LoadEmailsCSV(path); err == nil {
		t.Fatal("Expected error for invalid email")
	}
}
