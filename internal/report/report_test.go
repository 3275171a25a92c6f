// © 2025 SESIM-KNTLU. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package report

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"go.astrophena.name/base/testutil"
)

// testColumns is a compact layout used in tests: one submission row is
// timestamp, email, municipality, school level, school name, discipline,
// topic, then two student slots of name/sex/age, then documents.
func testColumns() Columns {
	return Columns{
		Timestamp:    0,
		Email:        1,
		Municipality: 2,
		SchoolLevel:  3,
		SchoolName:   4,
		Discipline:   5,
		Topic:        6,
		Documents:    13,
		Students: []StudentColumns{
			{Name: 7, Sex: 8, Age: 9},
			{Name: 10, Sex: 11, Age: 12},
		},
	}
}

func testRows() [][]string {
	return [][]string{
		{
			"7/1/2025 10:00:00", "a@example.org", "Dili", "Sekundária", "ESG 1 Dili",
			"Fízika", "Pendulu", "Maria", "F", "16", "João", "M", "17.0", "https://drive.example.org/1",
		},
		{
			"7/1/2025 11:00:00", "b@example.org", "Baucau", "Pre-Sekundária", "EPS Baucau",
			"Biolojia", "Fotosíntese", "Ana", "F", "15", "", "", "", "https://drive.example.org/2",
		},
		{
			"7/1/2025 12:00:00", "c@example.org", "Dili", "Sekundária", "ESG 1 Dili",
			"Fízika", "Ondas", "Pedro", "M", "16",
		},
	}
}

func TestSummarizeTotals(t *testing.T) {
	s := Summarize(testRows(), testColumns())

	testutil.AssertEqual(t, s.TotalMunicipality, 2)
	testutil.AssertEqual(t, s.TotalDisciplines, 2)
	testutil.AssertEqual(t, s.TotalTopics, 3)
	// Four students have names.
	testutil.AssertEqual(t, s.TotalStudents, 4)
	testutil.AssertEqual(t, len(s.Students), 4)
	testutil.AssertEqual(t, len(s.Entries), 3)
}

func TestSummarizeCharts(t *testing.T) {
	s := Summarize(testRows(), testColumns())

	testutil.AssertEqual(t, s.MunicipalityChart, ChartData{
		Labels: []string{"Baucau", "Dili"},
		Data:   []int{1, 2},
	})
	testutil.AssertEqual(t, s.TopMunicipalities, ChartData{
		Labels: []string{"Dili", "Baucau"},
		Data:   []int{2, 1},
	})
	testutil.AssertEqual(t, s.DisciplineChart, ChartData{
		Labels: []string{"Fízika", "Biolojia"},
		Data:   []int{2, 1},
	})
	testutil.AssertEqual(t, s.GenderChart, GenderChartData{
		Labels:      []string{"F", "M"},
		Data:        []int{2, 2},
		Percentages: []string{"50.0%", "50.0%"},
	})
	// Ages sort numerically and "17.0" parses as 17.
	testutil.AssertEqual(t, s.AgeChart, ChartData{
		Labels: []string{"15", "16", "17"},
		Data:   []int{1, 2, 1},
	})
}

func TestSummarizeSchoolTable(t *testing.T) {
	s := Summarize(testRows(), testColumns())

	testutil.AssertEqual(t, s.SchoolTable, []SchoolRow{
		{Municipality: "Baucau", School: "EPS Baucau", Total: 1},
		{Municipality: "Dili", School: "ESG 1 Dili", Total: 2},
	})
}

func TestSummarizeStudents(t *testing.T) {
	s := Summarize(testRows(), testColumns())

	first := s.Students[0]
	testutil.AssertEqual(t, first.ID, "0-1")
	testutil.AssertEqual(t, first.Name, "Maria")
	testutil.AssertEqual(t, first.Municipality, "Dili")
	testutil.AssertEqual(t, first.Documents, "https://drive.example.org/1")

	// The short third row has no documents column.
	last := s.Students[len(s.Students)-1]
	testutil.AssertEqual(t, last.ID, "2-1")
	testutil.AssertEqual(t, last.Documents, "N/A")
}

func TestSummarizeOptions(t *testing.T) {
	s := Summarize(testRows(), testColumns())

	testutil.AssertEqual(t, s.SchoolLevelOptions, []string{"All", "Pre-Sekundária", "Sekundária"})
	testutil.AssertEqual(t, s.MunicipalityOptions, []string{"All", "Baucau", "Dili"})
}

func TestSummarizeSkipsNamelessStudents(t *testing.T) {
	rows := [][]string{
		{"7/1/2025 10:00:00", "a@example.org", "Dili", "Sekundária", "ESG 1 Dili",
			"Fízika", "Pendulu", "", "F", "16", "", "", "", ""},
	}
	s := Summarize(rows, testColumns())

	testutil.AssertEqual(t, len(s.Students), 0)
	testutil.AssertEqual(t, s.TotalStudents, 0)
	// The submission itself still counts.
	testutil.AssertEqual(t, s.TotalMunicipality, 1)
}

func TestSummarizeTrimsWhitespace(t *testing.T) {
	rows := [][]string{
		{"7/1/2025 10:00:00", "a@example.org", " Dili ", "Sekundária", "ESG 1 Dili",
			"Fízika", "Pendulu", " Maria ", " F ", " 16 ", "", "", "", ""},
	}
	s := Summarize(rows, testColumns())

	testutil.AssertEqual(t, s.MunicipalityChart.Labels, []string{"Dili"})
	testutil.AssertEqual(t, s.Students[0].Name, "Maria")
	testutil.AssertEqual(t, s.Students[0].Sex, "F")
	testutil.AssertEqual(t, s.AgeChart.Labels, []string{"16"})
}

func TestSummarizeUnparsableAge(t *testing.T) {
	rows := [][]string{
		{"7/1/2025 10:00:00", "a@example.org", "Dili", "Sekundária", "ESG 1 Dili",
			"Fízika", "Pendulu", "Maria", "F", "tinan 16", "", "", "", ""},
	}
	s := Summarize(rows, testColumns())

	testutil.AssertEqual(t, len(s.AgeChart.Labels), 0)
	// The student row keeps the raw value.
	testutil.AssertEqual(t, s.Students[0].Age, "tinan 16")
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil, testColumns())

	testutil.AssertEqual(t, s.TotalMunicipality, 0)
	testutil.AssertEqual(t, s.TotalStudents, 0)

	// The JSON payload must hold empty arrays and objects, not nulls: the
	// page script indexes them unconditionally.
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(b), "null") {
		t.Fatalf("marshaled empty summary contains null: %s", b)
	}
}

func TestTopChartLimit(t *testing.T) {
	counts := make(map[string]int)
	for _, m := range []string{
		"Aileu", "Ainaro", "Atauro", "Baucau", "Bobonaro", "Covalima",
		"Dili", "Ermera", "Lautem", "Liquica", "Manatuto", "Manufahi",
	} {
		counts[m] = len(m)
	}

	c := topChart(counts, topN)
	testutil.AssertEqual(t, len(c.Labels), topN)
	for i := 1; i < len(c.Data); i++ {
		if c.Data[i] > c.Data[i-1] {
			t.Fatalf("chart data not descending: %v", c.Data)
		}
	}
}

func TestParseTimestamp(t *testing.T) {
	cases := map[string]struct {
		in   string
		want time.Time
	}{
		"google forms": {"7/15/2025 10:30:00", time.Date(2025, time.July, 15, 10, 30, 0, 0, time.UTC)},
		"iso":          {"2025-07-15 10:30:00", time.Date(2025, time.July, 15, 10, 30, 0, 0, time.UTC)},
		"garbage":      {"lorem ipsum", time.Time{}},
		"empty":        {"", time.Time{}},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			testutil.AssertEqual(t, parseTimestamp(tc.in), tc.want)
		})
	}
}
