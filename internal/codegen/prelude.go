package codegen

import (
	"fmt"
	"strings"
)

// renderPrelude builds the use declarations and shim definitions the
// emitted body needs. It runs after the body so imports can be gated on
// what actually appears in the output.
func (em *Emitter) renderPrelude() string {
	body := em.buf.String()
	var sb strings.Builder

	var uses []string
	if strings.Contains(body, "HashMap") {
		uses = append(uses, "use std::collections::HashMap;")
	}
	if strings.Contains(body, "HashSet") {
		uses = append(uses, "use std::collections::HashSet;")
	}
	if strings.Contains(body, "Cow<") || strings.Contains(body, "Cow::") {
		uses = append(uses, "use std::borrow::Cow;")
	}
	if em.needs.Regex {
		uses = append(uses, "use regex::Regex;")
	}
	if em.argparse != nil {
		uses = append(uses, "use clap::Parser;")
	}
	for _, u := range uses {
		sb.WriteString(u)
		sb.WriteByte('\n')
	}
	if len(uses) > 0 {
		sb.WriteByte('\n')
	}

	for _, name := range em.needs.ExceptionNames() {
		sb.WriteString(exceptionShim(name))
		sb.WriteByte('\n')
	}
	if em.needs.MatchShim {
		sb.WriteString(matchShim)
		sb.WriteByte('\n')
	}
	if em.needs.DateTimeShim {
		sb.WriteString(dateTimeShim)
		sb.WriteByte('\n')
	}
	if em.needs.PyValue {
		sb.WriteString(pyValueShim)
		sb.WriteByte('\n')
	}
	if em.needs.ColorShim {
		sb.WriteString(colorShim)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// exceptionShim defines one error struct mirroring a Python exception
// type: a message, a constructor, and the std error plumbing.
func exceptionShim(name string) string {
	return fmt.Sprintf(`#[derive(Debug, Clone)]
pub struct %[1]s {
    pub message: String,
}

impl %[1]s {
    pub fn new(message: impl Into<String>) -> Self {
        Self { message: message.into() }
    }
}

impl std::fmt::Display for %[1]s {
    fn fmt(&self, f: &mut std::fmt::Formatter<'_>) -> std::fmt::Result {
        write!(f, "%[1]s: {}", self.message)
    }
}

impl std::error::Error for %[1]s {}
`, name)
}

// matchShim wraps regex::Match with the group/start/end surface match
// objects expose.
const matchShim = `#[derive(Debug, Clone)]
pub struct PyMatch {
    groups: Vec<Option<(usize, usize, String)>>,
}

impl PyMatch {
    fn slot(&self, idx: i64) -> Option<&(usize, usize, String)> {
        self.groups.get(idx as usize).and_then(|g| g.as_ref())
    }

    pub fn group(&self, idx: i64) -> String {
        self.slot(idx).map(|g| g.2.clone()).unwrap_or_default()
    }

    pub fn groups(&self) -> Vec<Option<String>> {
        self.groups[1..].iter().map(|g| g.as_ref().map(|v| v.2.clone())).collect()
    }

    pub fn start(&self, idx: i64) -> i64 {
        self.slot(idx).map(|g| g.0 as i64).unwrap_or(-1)
    }

    pub fn end(&self, idx: i64) -> i64 {
        self.slot(idx).map(|g| g.1 as i64).unwrap_or(-1)
    }

    pub fn span(&self, idx: i64) -> (i64, i64) {
        (self.start(idx), self.end(idx))
    }
}

impl From<regex::Captures<'_>> for PyMatch {
    fn from(c: regex::Captures<'_>) -> Self {
        let groups = (0..c.len())
            .map(|i| c.get(i).map(|m| (m.start(), m.end(), m.as_str().to_string())))
            .collect();
        Self { groups }
    }
}
`

// dateTimeShim wraps chrono with the datetime/timedelta surface the
// rewrites target.
const dateTimeShim = `#[derive(Debug, Clone, Copy, PartialEq, PartialOrd)]
pub struct PyDateTime {
    inner: chrono::DateTime<chrono::Local>,
}

impl PyDateTime {
    pub fn now() -> Self {
        Self { inner: chrono::Local::now() }
    }

    pub fn today() -> Self {
        Self::now()
    }

    pub fn strftime(&self, fmt: &str) -> String {
        self.inner.format(&python_strftime(fmt)).to_string()
    }

    pub fn isoformat(&self) -> String {
        self.inner.to_rfc3339()
    }

    pub fn timestamp(&self) -> f64 {
        self.inner.timestamp_millis() as f64 / 1000.0
    }
}

impl std::ops::Sub for PyDateTime {
    type Output = PyTimeDelta;

    fn sub(self, rhs: Self) -> PyTimeDelta {
        PyTimeDelta { inner: self.inner - rhs.inner }
    }
}

#[derive(Debug, Clone, Copy, PartialEq, PartialOrd)]
pub struct PyTimeDelta {
    inner: chrono::Duration,
}

impl PyTimeDelta {
    pub fn new(days: i64, seconds: i64) -> Self {
        Self { inner: chrono::Duration::days(days) + chrono::Duration::seconds(seconds) }
    }

    pub fn num_days(&self) -> i64 {
        self.inner.num_days()
    }

    pub fn num_seconds(&self) -> i64 {
        self.inner.num_seconds()
    }

    pub fn total_seconds(&self) -> f64 {
        self.inner.num_milliseconds() as f64 / 1000.0
    }
}

fn python_strftime(fmt: &str) -> String {
    fmt.to_string()
}
`

// pyValueShim is the dynamic-value sum type for containers whose
// element types cannot be unified.
const pyValueShim = `#[derive(Debug, Clone, PartialEq)]
pub enum PyValue {
    None,
    Bool(bool),
    Int(i64),
    Float(f64),
    Str(String),
    List(Vec<PyValue>),
}

impl std::fmt::Display for PyValue {
    fn fmt(&self, f: &mut std::fmt::Formatter<'_>) -> std::fmt::Result {
        match self {
            PyValue::None => write!(f, "None"),
            PyValue::Bool(b) => write!(f, "{}", if *b { "True" } else { "False" }),
            PyValue::Int(v) => write!(f, "{}", v),
            PyValue::Float(v) => write!(f, "{}", v),
            PyValue::Str(s) => write!(f, "{}", s),
            PyValue::List(items) => {
                write!(f, "[")?;
                for (i, it) in items.iter().enumerate() {
                    if i > 0 {
                        write!(f, ", ")?;
                    }
                    write!(f, "{}", it)?;
                }
                write!(f, "]")
            }
        }
    }
}
`

// colorShim ports the colorsys conversion formulas; all channels are
// fractions in [0, 1].
const colorShim = `fn rgb_to_hsv(r: f64, g: f64, b: f64) -> (f64, f64, f64) {
    let maxc = r.max(g).max(b);
    let minc = r.min(g).min(b);
    let v = maxc;
    if minc == maxc {
        return (0.0, 0.0, v);
    }
    let s = (maxc - minc) / maxc;
    let rc = (maxc - r) / (maxc - minc);
    let gc = (maxc - g) / (maxc - minc);
    let bc = (maxc - b) / (maxc - minc);
    let h = if r == maxc {
        bc - gc
    } else if g == maxc {
        2.0 + rc - bc
    } else {
        4.0 + gc - rc
    };
    ((h / 6.0).rem_euclid(1.0), s, v)
}

fn hsv_to_rgb(h: f64, s: f64, v: f64) -> (f64, f64, f64) {
    if s == 0.0 {
        return (v, v, v);
    }
    let i = (h * 6.0).floor();
    let f = h * 6.0 - i;
    let p = v * (1.0 - s);
    let q = v * (1.0 - s * f);
    let t = v * (1.0 - s * (1.0 - f));
    match (i as i64).rem_euclid(6) {
        0 => (v, t, p),
        1 => (q, v, p),
        2 => (p, v, t),
        3 => (p, q, v),
        4 => (t, p, v),
        _ => (v, p, q),
    }
}

fn rgb_to_hls(r: f64, g: f64, b: f64) -> (f64, f64, f64) {
    let maxc = r.max(g).max(b);
    let minc = r.min(g).min(b);
    let l = (minc + maxc) / 2.0;
    if minc == maxc {
        return (0.0, l, 0.0);
    }
    let s = if l <= 0.5 {
        (maxc - minc) / (maxc + minc)
    } else {
        (maxc - minc) / (2.0 - maxc - minc)
    };
    let rc = (maxc - r) / (maxc - minc);
    let gc = (maxc - g) / (maxc - minc);
    let bc = (maxc - b) / (maxc - minc);
    let h = if r == maxc {
        bc - gc
    } else if g == maxc {
        2.0 + rc - bc
    } else {
        4.0 + gc - rc
    };
    ((h / 6.0).rem_euclid(1.0), l, s)
}

fn hls_to_rgb(h: f64, l: f64, s: f64) -> (f64, f64, f64) {
    fn ramp(m1: f64, m2: f64, hue: f64) -> f64 {
        let hue = hue.rem_euclid(1.0);
        if hue < 1.0 / 6.0 {
            m1 + (m2 - m1) * hue * 6.0
        } else if hue < 0.5 {
            m2
        } else if hue < 2.0 / 3.0 {
            m1 + (m2 - m1) * (2.0 / 3.0 - hue) * 6.0
        } else {
            m1
        }
    }
    if s == 0.0 {
        return (l, l, l);
    }
    let m2 = if l <= 0.5 { l * (1.0 + s) } else { l + s - l * s };
    let m1 = 2.0 * l - m2;
    (
        ramp(m1, m2, h + 1.0 / 3.0),
        ramp(m1, m2, h),
        ramp(m1, m2, h - 1.0 / 3.0),
    )
}

fn rgb_to_yiq(r: f64, g: f64, b: f64) -> (f64, f64, f64) {
    let y = 0.30 * r + 0.59 * g + 0.11 * b;
    (
        y,
        0.74 * (r - y) - 0.27 * (b - y),
        0.48 * (r - y) + 0.41 * (b - y),
    )
}

fn yiq_to_rgb(y: f64, i: f64, q: f64) -> (f64, f64, f64) {
    let r = y + 0.9468822170900693 * i + 0.6235565819861433 * q;
    let g = y - 0.27478764629897834 * i - 0.6356910791873801 * q;
    let b = y - 1.1085450346420322 * i + 1.7090069284064666 * q;
    (r.clamp(0.0, 1.0), g.clamp(0.0, 1.0), b.clamp(0.0, 1.0))
}
`
