package cities

import "testing"

func TestNormalizeStationCode(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{in: "aa:bb:cc", want: "AA:BB:CC", wantOK: true},
		{in: "  s1 ", want: "S1", wantOK: true},
		{in: "S1", want: "S1", wantOK: true},
		{in: "   ", want: "", wantOK: false},
		{in: "", want: "", wantOK: false},
	}
	for _, tt := range tests {
		got, ok := NormalizeStationCode(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("NormalizeStationCode(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
		again, _ := NormalizeStationCode(got)
		if again != got {
			t.Errorf("NormalizeStationCode not idempotent for %q: %q then %q", tt.in, got, again)
		}
	}
}

func TestTable_Lookups(t *testing.T) {
	tbl, err := NewTable(map[string]string{" dev-01 ": "brovary"})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	if name, ok := tbl.ByID(3); !ok || name != "Irpin" {
		t.Errorf("ByID(3) = %q, %v; want Irpin, true", name, ok)
	}
	if _, ok := tbl.ByID(99); ok {
		t.Error("ByID(99) should not resolve")
	}
	if name, ok := tbl.ByName("  bila_tserkva "); !ok || name != "Bila_Tserkva" {
		t.Errorf("ByName = %q, %v; want Bila_Tserkva, true", name, ok)
	}
	if _, ok := tbl.ByName("Kyiv"); ok {
		t.Error("ByName(Kyiv) should not resolve")
	}
	if name, ok := tbl.ByIDString(" 10 "); !ok || name != "Boryspil" {
		t.Errorf("ByIDString(10) = %q, %v; want Boryspil, true", name, ok)
	}
	if _, ok := tbl.ByIDString("ten"); ok {
		t.Error("ByIDString(ten) should not resolve")
	}
	if city, ok := tbl.ByCode("DEV-01"); !ok || city != "Brovary" {
		t.Errorf("ByCode(DEV-01) = %q, %v; want Brovary, true", city, ok)
	}
}

func TestTable_List(t *testing.T) {
	tbl, err := NewTable(nil)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	list := tbl.List()
	if len(list) != 16 {
		t.Fatalf("len(List) = %d; want 16", len(list))
	}
	for i, c := range list {
		if c.ID != i+1 {
			t.Fatalf("List[%d].ID = %d; want %d", i, c.ID, i+1)
		}
	}
	if list[2] != (City{ID: 3, Name: "Irpin"}) {
		t.Errorf("List[2] = %+v; want {3 Irpin}", list[2])
	}

	list[0].Name = "changed"
	if tbl.List()[0].Name != "Pereiaslav" {
		t.Error("List must return a copy")
	}
}

func TestNewTable_RejectsUnknownCity(t *testing.T) {
	if _, err := NewTable(map[string]string{"X1": "Atlantis"}); err == nil {
		t.Fatal("expected error for unknown city")
	}
	if _, err := NewTable(map[string]string{"  ": "Irpin"}); err == nil {
		t.Fatal("expected error for empty code")
	}
}
