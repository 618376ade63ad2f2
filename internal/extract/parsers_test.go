package extract

import (
	"context"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/techtime/internal/entity"
)

const jobCard = `NORTHGATE MOTORS SERVICE DEPT
JOB CARD No: JC48213
WIP No: 482913
Date: 14/03/2024
Vehicle Reg: AB12 CDE
Tel: 01632 960123`

func values(list []entity.ParseResult) []string {
	out := make([]string, len(list))
	for i, r := range list {
		out[i] = r.Value
	}
	return out
}

func TestParseAll_JobCard(t *testing.T) {
	c := ParseAll(jobCard)

	reg, ok := entity.Top(c.Registration)
	require.True(t, ok)
	assert.Equal(t, "AB12 CDE", reg.Value)
	assert.Equal(t, "Vehicle Reg: AB12 CDE", reg.SourceLine)

	wip, ok := entity.Top(c.WIPNumber)
	require.True(t, ok)
	assert.Equal(t, "482913", wip.Value)
	assert.GreaterOrEqual(t, wip.Confidence, 0.8)
	assert.NotContains(t, values(c.WIPNumber), "960123")

	job, ok := entity.Top(c.JobNumber)
	require.True(t, ok)
	assert.Equal(t, "JC48213", job.Value)
	assert.NotContains(t, values(c.JobNumber), "482913")
}

func TestParseRegistration_Formats(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"current", "AB12 CDE", "AB12 CDE"},
		{"current no space", "ab12cde", "AB12 CDE"},
		{"prefix", "A123 BCD", "A123 BCD"},
		{"suffix", "ABC 123D", "ABC 123D"},
		{"dateless letters first", "ABC 1234", "ABC 1234"},
		{"dateless digits first", "1234 AB", "1234 AB"},
		{"folded O and I", "AB1O CDE", "AB10 CDE"},
		{"folded letters", "0B12 CD1", "OB12 CDI"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseRegistration(tt.text)
			require.NotEmpty(t, got)
			assert.Equal(t, tt.want, got[0].Value)
		})
	}
}

func TestParseRegistration_ConfidenceByFormatAndLabel(t *testing.T) {
	current := ParseRegistration("AB12 CDE")[0].Confidence
	prefix := ParseRegistration("A123 BCD")[0].Confidence
	dateless := ParseRegistration("ABC 1234")[0].Confidence
	assert.Greater(t, current, prefix)
	assert.Greater(t, prefix, dateless)

	folded := ParseRegistration("AB1O CDE")[0].Confidence
	assert.Less(t, folded, current)

	labelled := ParseRegistration("Reg: AB12 CDE")[0].Confidence
	assert.Greater(t, labelled, current)

	nextLine := ParseRegistration("Registration:\nAB12 CDE")[0].Confidence
	assert.Greater(t, nextLine, current)
	assert.Less(t, nextLine, labelled)
}

func TestParseRegistration_IgnoresNoise(t *testing.T) {
	assert.Empty(t, ParseRegistration("Tel 0161 496 0000\nNo 1234\nDate 14/03/2024"))
	assert.Empty(t, ParseRegistration(""))
}

func TestParseWIPNumber_LabelProximity(t *testing.T) {
	got := ParseWIPNumber("Ref 55555\nWIP No: 12345\nW.I.P.\n67890")
	require.Len(t, got, 3)
	assert.Equal(t, []string{"12345", "67890", "55555"}, values(got))
	assert.Greater(t, got[0].Confidence, got[1].Confidence)
	assert.Greater(t, got[1].Confidence, got[2].Confidence)
}

func TestParseWIPNumber_Penalties(t *testing.T) {
	got := ParseWIPNumber("Total £1234.50\n2024\n45678")
	require.NotEmpty(t, got)
	assert.Equal(t, "45678", got[0].Value)
	for _, r := range got[1:] {
		assert.Less(t, r.Confidence, got[0].Confidence)
	}

	assert.Empty(t, ParseWIPNumber("Tel: 01632 960123"))
	assert.Empty(t, ParseWIPNumber("123 and 123456789"))
}

func TestParseWIPNumber_MergesDuplicates(t *testing.T) {
	got := ParseWIPNumber("48291\nWIP: 48291")
	require.Len(t, got, 1)
	assert.Equal(t, "48291", got[0].Value)
	assert.Equal(t, 0.8, got[0].Confidence)
	assert.Equal(t, "WIP: 48291", got[0].SourceLine)
}

func TestParseJobNumber(t *testing.T) {
	got := ParseJobNumber("Job No: 7781-A\nJob Card\nJC-200\n99123", "")
	assert.Equal(t, []string{"7781-A", "JC-200", "99123"}, values(got))

	// the WIP value on a WIP line is not offered as a job number
	got = ParseJobNumber("WIP No: 48291 Job #: 48291", "48291")
	assert.Empty(t, got)
}

func TestParseJobNumber_EqualConfidenceKeepsScanOrder(t *testing.T) {
	got := ParseJobNumber("Job No: A100 B200 C300", "")
	require.Len(t, got, 3)
	assert.Equal(t, []string{"A100", "B200", "C300"}, values(got))
	assert.Equal(t, got[1].Confidence, got[2].Confidence)
}

func TestRuleExtractor(t *testing.T) {
	c, err := RuleExtractor{}.ExtractFields(context.Background(), jobCard)
	require.NoError(t, err)
	assert.NotEmpty(t, c.Registration)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = RuleExtractor{}.ExtractFields(ctx, jobCard)
	assert.Error(t, err)
}

func sorted(list []entity.ParseResult) bool {
	seen := map[string]bool{}
	for i, r := range list {
		if r.Confidence < 0 || r.Confidence > 1 || seen[r.Value] {
			return false
		}
		seen[r.Value] = true
		if i > 0 && list[i-1].Confidence < r.Confidence {
			return false
		}
	}
	return true
}

func TestParseAll_CandidatesSortedProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	fragments := []string{
		"WIP No:", "Reg:", "Job No:", "Job Card", "Tel:", "£", "Date:", "\n", " ",
		"AB12 CDE", "A123 BCD", "ABC 123D", "ABC 1234", "12345", "987654", "0161 4960000",
		"14/03/2024", "JC-881", "2024", "O0I1", "total 12.50",
	}

	properties.Property("every candidate list is ranked and deduplicated", prop.ForAll(
		func(idx []int) bool {
			var b strings.Builder
			for _, i := range idx {
				b.WriteString(fragments[i])
				b.WriteByte(' ')
			}
			c := ParseAll(b.String())
			return sorted(c.Registration) && sorted(c.WIPNumber) && sorted(c.JobNumber)
		},
		gen.SliceOf(gen.IntRange(0, len(fragments)-1)),
	))

	properties.TestingRun(t)
}
