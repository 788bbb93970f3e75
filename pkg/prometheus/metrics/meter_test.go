package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSketchMetricNameSanitizesLabel(t *testing.T) {
	assert.Equal(t, `cms_updates_total{sketch="plain"}`, sketchMetricName("cms_updates_total", "plain"))
	assert.Equal(t, `cms_updates_total{sketch="a_b_c_"}`, sketchMetricName("cms_updates_total", "a\"b\\c\n"))
}

func TestStatus(t *testing.T) {
	assert.Equal(t, "200", Status(200))
	assert.Equal(t, "507", Status(507))
}
