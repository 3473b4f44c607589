package diag

import "testing"

func TestDetailKeyConstants(t *testing.T) {
	keys := []struct {
		name  string
		value string
	}{
		{"DetailKeyExpected", DetailKeyExpected},
		{"DetailKeyGot", DetailKeyGot},
		{"DetailKeyName", DetailKeyName},
		{"DetailKeyReason", DetailKeyReason},
		{"DetailKeyDetail", DetailKeyDetail},
		{"DetailKeyContext", DetailKeyContext},
		{"DetailKeyImportPath", DetailKeyImportPath},
		{"DetailKeyAlias", DetailKeyAlias},
		{"DetailKeyCycle", DetailKeyCycle},
		{"DetailKeyRuleName", DetailKeyRuleName},
		{"DetailKeyCount", DetailKeyCount},
	}

	for _, k := range keys {
		t.Run(k.name, func(t *testing.T) {
			if k.value == "" {
				t.Errorf("%s is empty", k.name)
			}
			for _, r := range k.value {
				if r >= 'A' && r <= 'Z' {
					t.Errorf("%s contains uppercase: %q", k.name, k.value)
					break
				}
			}
		})
	}
}

func TestDetailKeyConstants_Uniqueness(t *testing.T) {
	keys := []string{
		DetailKeyExpected,
		DetailKeyGot,
		DetailKeyName,
		DetailKeyReason,
		DetailKeyDetail,
		DetailKeyContext,
		DetailKeyImportPath,
		DetailKeyAlias,
		DetailKeyCycle,
		DetailKeyRuleName,
		DetailKeyCount,
	}

	seen := make(map[string]bool)
	for _, k := range keys {
		if seen[k] {
			t.Errorf("duplicate key: %q", k)
		}
		seen[k] = true
	}
}

func TestExpectedGot(t *testing.T) {
	details := ExpectedGot("string", "int")

	if len(details) != 2 {
		t.Fatalf("ExpectedGot returned %d details; want 2", len(details))
	}

	if details[0].Key != DetailKeyExpected {
		t.Errorf("first detail key = %q; want %q", details[0].Key, DetailKeyExpected)
	}
	if details[0].Value != "string" {
		t.Errorf("first detail value = %q; want %q", details[0].Value, "string")
	}

	if details[1].Key != DetailKeyGot {
		t.Errorf("second detail key = %q; want %q", details[1].Key, DetailKeyGot)
	}
	if details[1].Value != "int" {
		t.Errorf("second detail value = %q; want %q", details[1].Value, "int")
	}
}

func TestImportAlias(t *testing.T) {
	details := ImportAlias("numpy", "np")

	if len(details) != 2 {
		t.Fatalf("ImportAlias returned %d details; want 2", len(details))
	}

	if details[0].Key != DetailKeyImportPath {
		t.Errorf("first detail key = %q; want %q", details[0].Key, DetailKeyImportPath)
	}
	if details[0].Value != "numpy" {
		t.Errorf("first detail value = %q; want %q", details[0].Value, "numpy")
	}

	if details[1].Key != DetailKeyAlias {
		t.Errorf("second detail key = %q; want %q", details[1].Key, DetailKeyAlias)
	}
	if details[1].Value != "np" {
		t.Errorf("second detail value = %q; want %q", details[1].Value, "np")
	}
}

func TestDetail_ZeroValue(t *testing.T) {
	var d Detail
	if d.Key != "" {
		t.Errorf("zero Detail.Key = %q; want empty", d.Key)
	}
	if d.Value != "" {
		t.Errorf("zero Detail.Value = %q; want empty", d.Value)
	}
}
