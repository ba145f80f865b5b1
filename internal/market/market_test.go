package market

import "testing"

func TestIdentify(t *testing.T) {
	cases := []struct {
		ticker string
		want   Market
	}{
		{"AAPL", US},
		{"spy", US},
		{"600519", ChinaA},
		{"000001", ChinaA},
		{"0700.HK", HongKong},
		{"09988.hk", HongKong},
		{"  NVDA  ", US},
		{"TOOLONG", Unknown},
		{"12345", Unknown},
		{"", Unknown},
		{"600519.SH", Unknown},
	}
	for _, c := range cases {
		if got := Identify(c.ticker); got != c.want {
			t.Errorf("Identify(%q) = %v, want %v", c.ticker, got, c.want)
		}
	}
}

func TestCurrency(t *testing.T) {
	if name, sym := Currency("600519"); name != "人民币" || sym != "¥" {
		t.Errorf("china currency = %q %q", name, sym)
	}
	if name, sym := Currency("0700.HK"); name != "港币" || sym != "HK$" {
		t.Errorf("hk currency = %q %q", name, sym)
	}
	if name, sym := Currency("AAPL"); name != "美元" || sym != "$" {
		t.Errorf("us currency = %q %q", name, sym)
	}
}

func TestNormalizeHKTicker(t *testing.T) {
	cases := map[string]string{
		"0700":     "0700.HK",
		"09988":    "09988.HK",
		"0700.HK":  "0700.HK",
		"0700.hk":  "0700.HK",
		"AAPL":     "AAPL",
		" 03690  ": "03690.HK",
	}
	for in, want := range cases {
		if got := NormalizeHKTicker(in); got != want {
			t.Errorf("NormalizeHKTicker(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGetInfo(t *testing.T) {
	info := GetInfo("600519")
	if info.Market != ChinaA || info.DataSource != "china_unified" {
		t.Errorf("unexpected info %+v", info)
	}
	if info.CurrencySymbol != "¥" {
		t.Errorf("CurrencySymbol = %q", info.CurrencySymbol)
	}

	info = GetInfo("aapl")
	if info.Ticker != "AAPL" || info.DataSource != "yahoo_finance" {
		t.Errorf("unexpected info %+v", info)
	}
}

func TestValidDate(t *testing.T) {
	if !ValidDate("2025-06-01") {
		t.Error("expected valid date")
	}
	for _, d := range []string{"2025/06/01", "25-06-01", "2025-6-1", "", "2025-06-01 "} {
		if ValidDate(d) {
			t.Errorf("ValidDate(%q) should be false", d)
		}
	}
}
