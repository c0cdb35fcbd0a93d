package bazi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validInfo() *Info {
	return &Info{
		Name:        "张三",
		Gender:      "Male",
		BirthYear:   "1990",
		YearPillar:  "庚午",
		MonthPillar: "辛巳",
		DayPillar:   "庚辰",
		HourPillar:  "癸未",
		StartAge:    "8",
		FirstDaYun:  "壬午",
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, validInfo().Validate())

	tests := []struct {
		name   string
		mutate func(i *Info)
	}{
		{"gender", func(i *Info) { i.Gender = "male" }},
		{"short pillar", func(i *Info) { i.DayPillar = "庚" }},
		{"missing da yun", func(i *Info) { i.FirstDaYun = "" }},
		{"start age", func(i *Info) { i.StartAge = "eight" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := validInfo()
			tt.mutate(info)
			assert.Error(t, info.Validate())
		})
	}
}

func TestForward(t *testing.T) {
	info := validInfo()
	assert.True(t, IsYang(info.YearPillar))
	assert.True(t, info.Forward())

	info.Gender = "Female"
	assert.False(t, info.Forward())

	info.YearPillar = "乙亥"
	assert.False(t, IsYang(info.YearPillar))
	assert.True(t, info.Forward())
}

func TestUserPrompt(t *testing.T) {
	prompt := UserPrompt(validInfo())
	assert.Contains(t, prompt, "男 (乾造)")
	assert.Contains(t, prompt, "顺行 (Forward)")
	assert.Contains(t, prompt, "起运年龄：8 岁")
	assert.Contains(t, prompt, "张三")

	info := validInfo()
	info.Name = ""
	assert.Contains(t, UserPrompt(info), "未提供")
}

func TestSystemInstruction(t *testing.T) {
	assert.Contains(t, SystemInstruction(KindMain), "chartPoints")
	assert.Contains(t, SystemInstruction(KindWealth), "wealthScore")
	assert.Contains(t, SystemInstruction(KindLove), "loveScore")
}
