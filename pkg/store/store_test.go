package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/droidauto/screenworker/pkg/macro"
)

// newTestStore 创建临时数据库与模板目录
func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	templatesDir := filepath.Join(dir, "templates")
	require.NoError(t, os.MkdirAll(templatesDir, 0755))

	s, err := Open(filepath.Join(dir, "test.db"), templatesDir)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, templatesDir
}

// touchTemplate 创建空的模板参考图文件
func touchTemplate(t *testing.T, templatesDir, filename string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(templatesDir, filename), []byte("png"), 0644))
}

func TestSeedDefaults(t *testing.T) {
	s, templatesDir := newTestStore(t)

	require.NoError(t, s.SeedDefaults())
	touchTemplate(t, templatesDir, "noload.png")
	touchTemplate(t, templatesDir, "Login.png")

	templates, err := s.ListTemplates()
	require.NoError(t, err)
	// 默认模板 8 条，但只有参考图存在的 2 条会返回
	require.Len(t, templates, 2)

	// 按优先级降序: noload(10) > login(5)
	assert.Equal(t, "noload", templates[0].Name)
	assert.Equal(t, 10, templates[0].Priority)
	assert.Equal(t, "login", templates[1].Name)

	// 重复播种不覆盖
	require.NoError(t, s.UpdateTemplateTuning(templates[0].ID, 0.9, 12))
	require.NoError(t, s.SeedDefaults())
	tpl, err := s.GetTemplate(templates[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 0.9, tpl.Threshold)
	assert.Equal(t, 12, tpl.Priority)
}

func TestSaveTemplateUpsert(t *testing.T) {
	s, templatesDir := newTestStore(t)
	touchTemplate(t, templatesDir, "custom.png")

	require.NoError(t, s.SaveTemplate("custom", "custom.png", 0.8, 6))

	templates, err := s.ListTemplates()
	require.NoError(t, err)
	require.Len(t, templates, 1)
	id := templates[0].ID

	// 同名保存保持 id，更新其余字段
	require.NoError(t, s.SaveTemplate("custom", "custom.png", 0.85, 9))
	tpl, err := s.GetTemplate(id)
	require.NoError(t, err)
	assert.Equal(t, 0.85, tpl.Threshold)
	assert.Equal(t, 9, tpl.Priority)
	assert.Equal(t, filepath.Join(templatesDir, "custom.png"), tpl.Path)
}

func TestListTemplatesSkipsMissingFiles(t *testing.T) {
	s, templatesDir := newTestStore(t)

	require.NoError(t, s.SaveTemplate("present", "present.png", 0.7, 5))
	require.NoError(t, s.SaveTemplate("missing", "missing.png", 0.7, 9))
	touchTemplate(t, templatesDir, "present.png")

	templates, err := s.ListTemplates()
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.Equal(t, "present", templates[0].Name)
}

func TestGetTemplateNotFound(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.GetTemplate(999)
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.UpdateTemplateTuning(999, 0.8, 5)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveAndGetMacro(t *testing.T) {
	s, _ := newTestStore(t)

	actions := []macro.Action{
		{Type: macro.ActionTap, X: 100, Y: 200},
		{Type: macro.ActionWait, Seconds: 1.5},
		{Type: macro.ActionText, Value: "hello world"},
	}
	require.NoError(t, s.SaveMacro("dismiss_nag", "关闭弹窗", actions))

	m, err := s.GetMacro("dismiss_nag")
	require.NoError(t, err)
	assert.Equal(t, "dismiss_nag", m.Name)
	assert.Equal(t, "关闭弹窗", m.Description)
	require.Len(t, m.Actions, 3)
	assert.Equal(t, macro.ActionTap, m.Actions[0].Type)
	assert.Equal(t, 100, m.Actions[0].X)
	assert.Equal(t, 1.5, m.Actions[1].Seconds)
	assert.Equal(t, "hello world", m.Actions[2].Value)

	byID, err := s.GetMacroByID(m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.Name, byID.Name)

	// 同名保存覆盖动作
	require.NoError(t, s.SaveMacro("dismiss_nag", "关闭弹窗", actions[:1]))
	m, err = s.GetMacro("dismiss_nag")
	require.NoError(t, err)
	assert.Len(t, m.Actions, 1)
}

func TestGetMacroNotFound(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.GetMacro("nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetMacroByID(42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListAndDeleteMacros(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.SaveMacro("b_macro", "", nil))
	require.NoError(t, s.SaveMacro("a_macro", "", nil))

	macros, err := s.ListMacros()
	require.NoError(t, err)
	require.Len(t, macros, 2)
	// 按名称排序
	assert.Equal(t, "a_macro", macros[0].Name)
	assert.Equal(t, "b_macro", macros[1].Name)

	require.NoError(t, s.DeleteMacro("a_macro"))
	macros, err = s.ListMacros()
	require.NoError(t, err)
	assert.Len(t, macros, 1)
}

func TestTemplateMacroLinks(t *testing.T) {
	s, templatesDir := newTestStore(t)
	touchTemplate(t, templatesDir, "noload.png")

	require.NoError(t, s.SaveTemplate("noload", "noload.png", 0.7, 10))
	templates, err := s.ListTemplates()
	require.NoError(t, err)
	templateID := templates[0].ID

	require.NoError(t, s.SaveMacro("reload", "", []macro.Action{{Type: macro.ActionTap, X: 1, Y: 2}}))
	require.NoError(t, s.SaveMacro("dismiss", "", []macro.Action{{Type: macro.ActionBack}}))
	reload, err := s.GetMacro("reload")
	require.NoError(t, err)
	dismiss, err := s.GetMacro("dismiss")
	require.NoError(t, err)

	require.NoError(t, s.LinkTemplateToMacro(templateID, reload.ID))
	require.NoError(t, s.LinkTemplateToMacro(templateID, dismiss.ID))
	// 重复关联幂等
	require.NoError(t, s.LinkTemplateToMacro(templateID, reload.ID))

	linked, err := s.MacrosForTemplate(templateID)
	require.NoError(t, err)
	require.Len(t, linked, 2)
	// 按关联顺序返回
	assert.Equal(t, "reload", linked[0].Name)
	assert.Equal(t, "dismiss", linked[1].Name)
	// 关联查询带动作
	require.Len(t, linked[0].Actions, 1)
	assert.Equal(t, macro.ActionTap, linked[0].Actions[0].Type)

	require.NoError(t, s.UnlinkTemplateFromMacro(templateID, reload.ID))
	linked, err = s.MacrosForTemplate(templateID)
	require.NoError(t, err)
	require.Len(t, linked, 1)
	assert.Equal(t, "dismiss", linked[0].Name)
}

func TestDeviceSettingsDefaults(t *testing.T) {
	s, _ := newTestStore(t)

	// 无记录时返回默认参数
	settings := s.GetDeviceSettings("192.168.1.10:5555")
	assert.Equal(t, macro.DefaultSettings(), settings)
}

func TestDeviceSettingsRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)

	want := macro.DeviceSettings{
		MatchThreshold:       0.85,
		KeystrokeDelayMs:     80,
		PostLoginWaitSeconds: 6,
	}
	require.NoError(t, s.SaveDeviceSettings("192.168.1.10:5555", want))
	assert.Equal(t, want, s.GetDeviceSettings("192.168.1.10:5555"))

	// 其他设备仍为默认值
	assert.Equal(t, macro.DefaultSettings(), s.GetDeviceSettings("192.168.1.11:5555"))

	// 覆盖更新
	want.KeystrokeDelayMs = 200
	require.NoError(t, s.SaveDeviceSettings("192.168.1.10:5555", want))
	assert.Equal(t, 200, s.GetDeviceSettings("192.168.1.10:5555").KeystrokeDelayMs)
}

func TestCredentials(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.GetCredentials("192.168.1.10:5555")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.SaveCredentials("192.168.1.10:5555", "operator", "secret"))
	creds, err := s.GetCredentials("192.168.1.10:5555")
	require.NoError(t, err)
	assert.Equal(t, "operator", creds.Username)
	assert.Equal(t, "secret", creds.Password)

	// 覆盖更新
	require.NoError(t, s.SaveCredentials("192.168.1.10:5555", "operator", "rotated"))
	creds, err = s.GetCredentials("192.168.1.10:5555")
	require.NoError(t, err)
	assert.Equal(t, "rotated", creds.Password)

	require.NoError(t, s.DeleteCredentials("192.168.1.10:5555"))
	_, err = s.GetCredentials("192.168.1.10:5555")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenCreatesParentDir(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "nested", "data", "test.db")

	s, err := Open(dbPath, dir)
	require.NoError(t, err)
	defer s.Close()

	_, statErr := os.Stat(dbPath)
	assert.NoError(t, statErr)
}
