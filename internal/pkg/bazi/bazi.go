// Package bazi holds the birth-chart request payload forwarded to the
// report generator and the prompts built from it. Converting a birth
// instant into pillars happens on the client.
package bazi

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Kind selects which report the generator produces
type Kind string

const (
	KindMain   Kind = "main"
	KindWealth Kind = "wealth"
	KindLove   Kind = "love"
)

// Info is the chart computed by the calendar conversion
type Info struct {
	Name        string `json:"name,omitempty"`
	Gender      string `json:"gender"` // Male or Female
	BirthYear   string `json:"birthYear"`
	YearPillar  string `json:"yearPillar"`
	MonthPillar string `json:"monthPillar"`
	DayPillar   string `json:"dayPillar"`
	HourPillar  string `json:"hourPillar"`
	StartAge    string `json:"startAge"`
	FirstDaYun  string `json:"firstDaYun"`
}

// Validate checks the fields the prompt depends on
func (i *Info) Validate() error {
	if i.Gender != "Male" && i.Gender != "Female" {
		return fmt.Errorf("gender must be Male or Female")
	}
	pillars := map[string]string{
		"yearPillar":  i.YearPillar,
		"monthPillar": i.MonthPillar,
		"dayPillar":   i.DayPillar,
		"hourPillar":  i.HourPillar,
		"firstDaYun":  i.FirstDaYun,
	}
	for field, p := range pillars {
		if utf8.RuneCountInString(strings.TrimSpace(p)) != 2 {
			return fmt.Errorf("%s must be a two-character pillar", field)
		}
	}
	if _, err := strconv.Atoi(strings.TrimSpace(i.StartAge)); err != nil {
		return fmt.Errorf("startAge must be an integer")
	}
	return nil
}

var yangStems = map[rune]bool{'甲': true, '丙': true, '戊': true, '庚': true, '壬': true}

// IsYang reports whether the heavenly stem of a pillar is yang
func IsYang(pillar string) bool {
	r, _ := utf8.DecodeRuneInString(strings.TrimSpace(pillar))
	return yangStems[r]
}

// Forward reports whether the luck cycles run forward: yang-year males and
// yin-year females go forward, everyone else backward
func (i *Info) Forward() bool {
	yang := IsYang(i.YearPillar)
	if i.Gender == "Male" {
		return yang
	}
	return !yang
}

const jsonOnly = "务必只返回纯JSON格式数据，不要包含任何markdown代码块标记。"

// SystemInstruction returns the system prompt for a report kind
func SystemInstruction(kind Kind) string {
	switch kind {
	case KindWealth:
		return "你是一位精通中国传统命理学的专家。请根据八字四柱与大运信息，输出财富深度分析 JSON：" +
			`{"wealthSummary":"","wealthScore":0,"careerPath":"","investment":"","peakPeriods":[{"ageRange":"","reason":""}]}` +
			"\n" + jsonOnly
	case KindLove:
		return "你是一位精通中国传统命理学的专家。请根据八字四柱与大运信息，输出桃花婚恋深度分析 JSON：" +
			`{"loveSummary":"","loveScore":0,"idealPartner":"","marriageTiming":"","peakPeriods":[{"ageRange":"","reason":""}]}` +
			"\n" + jsonOnly
	default:
		return "你是一位精通中国传统命理学的专家，需要根据用户提供的八字四柱信息生成详细的命理分析报告。" +
			"输出 JSON 须包含 bazi、summary、summaryScore、personality、industry、wealth、marriage、health、" +
			"以及 chartPoints 数组（1-100 岁，每项含 age、year、ganZhi、daYun、open、close、high、low、score、reason）。" +
			"score 范围 0-100，各项评分范围 0-10。\n" + jsonOnly
	}
}

// UserPrompt renders the chart into the user message
func UserPrompt(i *Info) string {
	gender := "女 (坤造)"
	if i.Gender == "Male" {
		gender = "男 (乾造)"
	}
	polarity := "阴"
	if IsYang(i.YearPillar) {
		polarity = "阳"
	}
	direction := "逆行 (Backward)"
	if i.Forward() {
		direction = "顺行 (Forward)"
	}
	startAge, err := strconv.Atoi(strings.TrimSpace(i.StartAge))
	if err != nil || startAge < 1 {
		startAge = 1
	}
	name := i.Name
	if name == "" {
		name = "未提供"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "请根据以下已经排好的八字四柱和指定的大运信息进行分析。\n\n")
	fmt.Fprintf(&b, "【基本信息】\n性别：%s\n姓名：%s\n出生年份：%s年 (阳历)\n\n", gender, name, i.BirthYear)
	fmt.Fprintf(&b, "【八字四柱】\n年柱：%s (天干属性：%s)\n月柱：%s\n日柱：%s\n时柱：%s\n\n",
		i.YearPillar, polarity, i.MonthPillar, i.DayPillar, i.HourPillar)
	fmt.Fprintf(&b, "【大运核心参数】\n1. 起运年龄：%d 岁 (虚岁)。\n2. 第一步大运：%s。\n3. 排序方向：%s。\n\n",
		startAge, i.FirstDaYun, direction)
	fmt.Fprintf(&b, "Age 1 到 %d 的 daYun 填 \"童限\"；从 %d 岁起每 10 年换一步大运，第一步为【%s】。\n",
		startAge-1, startAge, i.FirstDaYun)
	b.WriteString("daYun 填大运干支（10年一变），ganZhi 填流年干支（每年一变）。\n")
	b.WriteString(jsonOnly)
	return b.String()
}
