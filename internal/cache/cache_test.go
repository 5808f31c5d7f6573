package cache

import "testing"

func TestCache_FreshRequiresExactMatch(t *testing.T) {
	c := New()
	if c.Fresh("1", "https://a/") {
		t.Fatalf("空缓存不应命中")
	}

	c.Remember("1", "https://a/")
	if !c.Fresh("1", "https://a/") {
		t.Fatalf("相同链接应命中")
	}
	if c.Fresh("1", "https://a/ ") {
		t.Fatalf("链接有差异（尾部空格）不应命中")
	}
	if c.Fresh("1", "https://A/") {
		t.Fatalf("大小写不同不应命中")
	}
	if c.Fresh("2", "https://a/") {
		t.Fatalf("不同 key 不应命中")
	}
}

func TestCache_RememberOverwrites(t *testing.T) {
	c := New()
	c.Remember("1", "x")
	c.Remember("1", "y")
	if v, _ := c.Lookup("1"); v != "y" {
		t.Fatalf("期望 y，实际 %q", v)
	}
	if c.Len() != 1 {
		t.Fatalf("期望 1 个条目，实际 %d", c.Len())
	}
}

func TestCache_SeedDoesNotOverwrite(t *testing.T) {
	c := New()
	if !c.Seed("1", "x") {
		t.Fatalf("首次 Seed 应写入")
	}
	if c.Seed("1", "y") {
		t.Fatalf("已有条目时 Seed 不应写入")
	}
	if v, _ := c.Lookup("1"); v != "x" {
		t.Fatalf("期望 x，实际 %q", v)
	}
}
