package deadline

import "testing"

func TestParseHorizon(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		want    Horizon
		wantErr bool
	}{
		{in: "week", want: HorizonWeek},
		{in: " Day ", want: HorizonDay},
		{in: "h", want: HorizonHour},
		{in: "month", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseHorizon(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseHorizon(%q) = %v, want error", tt.in, got)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("ParseHorizon(%q) = %v, %v, want %v", tt.in, got, err, tt.want)
		}
		if back, _ := ParseHorizon(got.String()); back != got {
			t.Fatalf("String round trip of %v = %v", got, back)
		}
	}
}

func TestFlagsOnlyMark(t *testing.T) {
	t.Parallel()
	var f Flags
	for _, h := range Horizons {
		if f.Sent(h) {
			t.Fatalf("zero Flags reports %v sent", h)
		}
	}
	f.Mark(HorizonDay)
	f.Mark(HorizonDay)
	if !f.Sent(HorizonDay) || f.Sent(HorizonWeek) || f.Sent(HorizonHour) {
		t.Fatalf("flags = %+v, want only day", f)
	}
	if !f.Sent(Horizon(99)) {
		t.Fatal("unknown horizon must read as sent")
	}
}

func TestPreferences(t *testing.T) {
	t.Parallel()
	p := DefaultPreferences()
	for _, h := range Horizons {
		if !p.Enabled(h) {
			t.Fatalf("default %v disabled", h)
		}
	}
	p.Set(HorizonWeek, false)
	if p.Enabled(HorizonWeek) || !p.Enabled(HorizonDay) {
		t.Fatalf("prefs = %+v", p)
	}
	if p.Enabled(Horizon(0)) {
		t.Fatal("unknown horizon must read as disabled")
	}
}

func TestRefString(t *testing.T) {
	t.Parallel()
	if got := (Personal{ID: 3}).Ref().String(); got != "personal:3" {
		t.Fatalf("Ref = %q", got)
	}
	if got := (Group{ID: 12}).Ref().String(); got != "group:12" {
		t.Fatalf("Ref = %q", got)
	}
}
