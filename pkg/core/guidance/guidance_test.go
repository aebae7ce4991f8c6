package guidance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTable_IsExhaustive(t *testing.T) {
	keys := AllStepKeys()
	assert.Len(t, table, len(keys), "映射表与AllStepKeys必须一一对应")

	seen := make(map[StepKey]bool)
	for _, k := range keys {
		assert.False(t, seen[k], "重复的步骤标识: %s", k)
		seen[k] = true

		g, ok := Lookup(k)
		assert.True(t, ok, "缺少步骤指引: %s", k)
		assert.NotEmpty(t, g.Action)
		assert.NotEqual(t, GenericAction, g.Action, "已知步骤不能回退到通用指引: %s", k)
	}
}

func TestFor_UnknownKeyFallsBackToGeneric(t *testing.T) {
	g, ok := Lookup("renamed_step")
	assert.False(t, ok)
	assert.Equal(t, GenericAction, g.Action)
	assert.Equal(t, GenericAction, For("").Action)
	assert.Equal(t, table[StepSiteInspection], For("site_inspection").Action)
}
