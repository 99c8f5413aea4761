package extraction

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const sampleReceipt = `
  Big Bazaar
  MG Road, Bengaluru 560001
  Tel: 080 1234 5678

  Date: 15-03-2024
  Rice 5kg        450.00
  Oil 1L          184.50
  Subtotal        634.50
  Total: ₹ 1,234.50
  Paid by card, USD 0.00 surcharge
`

var _ = Describe("SegmentLines", func() {
	It("trims lines and drops blanks in order", func() {
		Expect(SegmentLines("  a \n\n\r\n b\t\n   \nc")).To(Equal([]string{"a", "b", "c"}))
	})

	It("returns an empty slice for empty text", func() {
		lines := SegmentLines("")
		Expect(lines).NotTo(BeNil())
		Expect(lines).To(BeEmpty())
	})

	It("splits on unicode line separators", func() {
		Expect(SegmentLines("one\u2028two\u0085three")).To(Equal([]string{"one", "two", "three"}))
	})
})

var _ = Describe("Engine", func() {
	var engine *Engine

	BeforeEach(func() {
		engine = DefaultEngine()
	})

	Describe("ExtractAmount", func() {
		var (
			text   string
			amount Optional[string]
		)

		JustBeforeEach(func() {
			amount = None[string]()
			if d, ok := engine.ExtractAmount(text).Get(); ok {
				amount = Some(d.StringFixed(2))
			}
		})

		When("a total is labelled with a colon", func() {
			BeforeEach(func() { text = "Total: 123.45" })

			It("returns the amount", func() {
				Expect(amount.OrElse("")).To(Equal("123.45"))
			})
		})

		When("a currency word sits between keyword and number", func() {
			BeforeEach(func() { text = "Total : Rs 123.45" })

			It("returns the amount", func() {
				Expect(amount.OrElse("")).To(Equal("123.45"))
			})
		})

		When("the number has comma grouping", func() {
			BeforeEach(func() { text = "AMOUNT 1,234.50" })

			It("strips the grouping", func() {
				Expect(amount.OrElse("")).To(Equal("1234.50"))
			})
		})

		When("the number has space grouping", func() {
			BeforeEach(func() { text = "balance due 12 345.00" })

			It("strips the grouping", func() {
				Expect(amount.OrElse("")).To(Equal("12345.00"))
			})
		})

		DescribeTable("dash leaders between keyword and number",
			func(input, expected string) {
				d, ok := engine.ExtractAmount(input).Get()
				Expect(ok).To(BeTrue())
				Expect(d.StringFixed(2)).To(Equal(expected))
			},
			Entry("dotted-line style leader", "TOTAL ----500.00", "500.00"),
			Entry("dash glued to both sides", "TOTAL-500.00", "500.00"),
			Entry("colon and dash before a grouped number", "Amount:-1,200.00", "1200.00"),
			Entry("dash after a colon", "Total: -5.00", "5.00"),
		)

		When("a dash separates keyword and number", func() {
			BeforeEach(func() { text = "Total - 5.00" })

			It("returns the amount", func() {
				Expect(amount.OrElse("")).To(Equal("5.00"))
			})
		})

		When("the number has four digits and no grouping", func() {
			BeforeEach(func() { text = "Amt 1500.00" })

			It("reads the whole number", func() {
				Expect(amount.OrElse("")).To(Equal("1500.00"))
			})
		})

		When("the number has no fraction", func() {
			BeforeEach(func() { text = "Total 100" })

			It("returns the integer amount", func() {
				Expect(amount.OrElse("")).To(Equal("100.00"))
			})
		})

		When("there are two totals", func() {
			BeforeEach(func() { text = "Total 50.00\nGrand Total 500.00" })

			It("returns the first one, not the larger one", func() {
				Expect(amount.OrElse("")).To(Equal("50.00"))
			})
		})

		When("a subtotal precedes the total", func() {
			BeforeEach(func() { text = "Subtotal 90.00\nTotal 100.00" })

			It("returns the subtotal", func() {
				Expect(amount.OrElse("")).To(Equal("90.00"))
			})
		})

		When("the number is too far from the keyword", func() {
			BeforeEach(func() { text = "Total amount due is shown below: 12.00" })

			It("is absent", func() {
				Expect(amount.IsPresent()).To(BeFalse())
			})
		})

		When("no keyword is present", func() {
			BeforeEach(func() { text = "Rice 450.00\nOil 184.50" })

			It("is absent", func() {
				Expect(amount.IsPresent()).To(BeFalse())
			})
		})
	})

	Describe("parseAmount", func() {
		It("rejects negative amounts", func() {
			Expect(parseAmount("-5.00").IsPresent()).To(BeFalse())
		})

		It("accepts an explicit plus sign", func() {
			d, ok := parseAmount("+5.00").Get()
			Expect(ok).To(BeTrue())
			Expect(d.StringFixed(2)).To(Equal("5.00"))
		})

		It("rejects garbage", func() {
			Expect(parseAmount("1.2.3").IsPresent()).To(BeFalse())
		})
	})

	Describe("ResolveCurrency", func() {
		DescribeTable("resolution order",
			func(text, expected string) {
				Expect(engine.ResolveCurrency(text).OrElse("")).To(Equal(expected))
			},
			Entry("rupee symbol beats a code elsewhere", "Paid USD\nTotal ₹ 100", "INR"),
			Entry("symbol table order beats text order", "€ 5 then ₹ 10", "INR"),
			Entry("dollar sign", "Total $12.00", "USD"),
			Entry("pound sign", "£4.20", "GBP"),
			Entry("code when no symbol", "Amount AED 40", "AED"),
			Entry("code is case-insensitive", "paid in jpy", "JPY"),
			Entry("first code in document order", "CAD 10 or AUD 12", "CAD"),
			Entry("code needs word boundaries", "USDT wallet", "INR"),
			Entry("default when nothing matches", "Thank you", "INR"),
		)

		When("the configured default differs", func() {
			BeforeEach(func() {
				cfg := DefaultConfig()
				cfg.DefaultCurrency = "usd"
				engine = MustNewEngine(cfg)
			})

			It("uses it, uppercased", func() {
				Expect(engine.ResolveCurrency("no signal here").OrElse("")).To(Equal("USD"))
			})
		})

		When("no default is configured", func() {
			BeforeEach(func() {
				cfg := DefaultConfig()
				cfg.DefaultCurrency = ""
				engine = MustNewEngine(cfg)
			})

			It("is absent without a signal", func() {
				Expect(engine.ResolveCurrency("no signal here").IsPresent()).To(BeFalse())
			})
		})

		When("the text is blank", func() {
			It("is absent even with a default", func() {
				Expect(engine.ResolveCurrency(" \n\t").IsPresent()).To(BeFalse())
			})
		})
	})

	Describe("NormalizeDate", func() {
		format := func(o Optional[time.Time]) string {
			if t, ok := o.Get(); ok {
				return t.Format("2006-01-02")
			}
			return ""
		}

		DescribeTable("numeric dates",
			func(text, expected string) {
				Expect(format(engine.NormalizeDate(text))).To(Equal(expected))
			},
			Entry("ISO input is unchanged", "Date 2024-03-15", "2024-03-15"),
			Entry("day-first with dashes", "15-03-2024", "2024-03-15"),
			Entry("day-first with slashes and single digits", "5/3/2024", "2024-03-05"),
			Entry("day-first with spaces", "on 15 03 2024 at", "2024-03-15"),
			Entry("year-first with slashes", "2024/3/5", "2024-03-05"),
			Entry("month-first is not swapped", "03/15/2024", ""),
			Entry("two-digit year is absent", "15/03/24", ""),
			Entry("impossible day is absent", "31-02-2024", ""),
			Entry("mixed separators do not match", "15-03/2024", ""),
			Entry("no date at all", "Total 12.00", ""),
			Entry("quantity columns are not a date", "Milk 1 2 120.00\nDate 15-03-2024", "2024-03-15"),
			Entry("space-separated short year does not match", "Qty 2 3 45\nDate 2024-01-09", "2024-01-09"),
		)

		DescribeTable("named months",
			func(text, expected string) {
				Expect(format(engine.NormalizeDate(text))).To(Equal(expected))
			},
			Entry("day month year", "Date: 15 March 2024", "2024-03-15"),
			Entry("abbreviated month", "15 Mar 2024", "2024-03-15"),
			Entry("ordinal and comma", "15th Mar, 2024", "2024-03-15"),
			Entry("dashes", "15-Mar-2024", "2024-03-15"),
			Entry("month first", "Mar 15, 2024", "2024-03-15"),
			Entry("upper case month first", "MARCH 15TH 2024", "2024-03-15"),
		)

		It("uses the first date in document order", func() {
			Expect(format(engine.NormalizeDate("15 Mar 2024 printed 2024-04-01"))).To(Equal("2024-03-15"))
			Expect(format(engine.NormalizeDate("2024-04-01 sale of 15 Mar 2024"))).To(Equal("2024-04-01"))
		})

		When("named months go through a custom resolver", func() {
			var phrases []string

			BeforeEach(func() {
				phrases = nil
				engine = MustNewEngine(DefaultConfig(), WithDateResolver(DateResolverFunc(func(p string) (time.Time, error) {
					phrases = append(phrases, p)
					return time.Date(2024, 3, 15, 13, 45, 0, 0, time.FixedZone("IST", 19800)), nil
				})))
			})

			It("hands over a canonical phrase", func() {
				engine.NormalizeDate("15th SEPT. 2024")
				engine.NormalizeDate("Sept 15, 2024")
				Expect(phrases).To(Equal([]string{"15 Sep 2024", "Sep 15, 2024"}))
			})

			It("keeps only the calendar day", func() {
				t, ok := engine.NormalizeDate("15 March 2024").Get()
				Expect(ok).To(BeTrue())
				Expect(t).To(Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)))
			})
		})

		When("the resolver fails", func() {
			BeforeEach(func() {
				engine = MustNewEngine(DefaultConfig(), WithDateResolver(DateResolverFunc(func(string) (time.Time, error) {
					return time.Time{}, errors.New("no idea")
				})))
			})

			It("is absent", func() {
				Expect(engine.NormalizeDate("15 March 2024").IsPresent()).To(BeFalse())
			})
		})
	})

	Describe("PickMerchant", func() {
		It("picks the first header-like line", func() {
			Expect(engine.PickMerchant([]string{"Big Bazaar", "2024-03-15", "Total 100"}).OrElse("")).To(Equal("Big Bazaar"))
		})

		It("skips short lines and lines with digits", func() {
			Expect(engine.PickMerchant([]string{"42 Main St", "AB", "Café Lüna"}).OrElse("")).To(Equal("Café Lüna"))
		})

		It("only looks at the first five lines", func() {
			lines := []string{"1", "2", "3", "4", "5", "Late Store"}
			Expect(engine.PickMerchant(lines).IsPresent()).To(BeFalse())
		})

		It("truncates long lines to 128 characters", func() {
			long := strings.Repeat("é", 200)
			m, ok := engine.PickMerchant([]string{long}).Get()
			Expect(ok).To(BeTrue())
			Expect([]rune(m)).To(HaveLen(128))
		})

		It("treats non-ASCII digits as digits", func() {
			Expect(engine.PickMerchant([]string{"Shop ٣"}).IsPresent()).To(BeFalse())
		})

		It("is absent for no lines", func() {
			Expect(engine.PickMerchant(nil).IsPresent()).To(BeFalse())
		})
	})

	Describe("Extract", func() {
		var result Result

		JustBeforeEach(func() {
			result = engine.Extract(sampleReceipt)
		})

		It("keeps the raw text untouched", func() {
			Expect(result.RawText).To(Equal(sampleReceipt))
		})

		It("segments the lines", func() {
			Expect(result.Lines).To(HaveLen(9))
			Expect(result.Lines[0]).To(Equal("Big Bazaar"))
		})

		It("extracts every field", func() {
			d, _ := result.Amount.Get()
			Expect(d.StringFixed(2)).To(Equal("634.50"))
			Expect(result.Currency.OrElse("")).To(Equal("INR"))
			t, _ := result.Date.Get()
			Expect(t.Format("2006-01-02")).To(Equal("2024-03-15"))
			Expect(result.Merchant.OrElse("")).To(Equal("Big Bazaar"))
			Expect(result.Complete()).To(BeTrue())
		})

		It("is deterministic", func() {
			first, err := json.Marshal(engine.Extract(sampleReceipt))
			Expect(err).NotTo(HaveOccurred())
			second, err := json.Marshal(engine.Extract(sampleReceipt))
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(Equal(first))
		})

		It("is safe to call concurrently", func() {
			want, _ := json.Marshal(result)
			var wg sync.WaitGroup
			got := make([][]byte, 16)
			for i := range got {
				wg.Add(1)
				go func() {
					defer wg.Done()
					got[i], _ = json.Marshal(engine.Extract(sampleReceipt))
				}()
			}
			wg.Wait()
			for _, g := range got {
				Expect(g).To(Equal(want))
			}
		})

		When("the text is empty", func() {
			It("returns every field absent", func() {
				empty := engine.Extract("")
				Expect(empty.RawText).To(BeEmpty())
				Expect(empty.Lines).To(BeEmpty())
				Expect(empty.Amount.IsPresent()).To(BeFalse())
				Expect(empty.Currency.IsPresent()).To(BeFalse())
				Expect(empty.Date.IsPresent()).To(BeFalse())
				Expect(empty.Merchant.IsPresent()).To(BeFalse())
				Expect(empty.Missing()).To(Equal([]string{"amount", "currency", "date", "merchant"}))
			})
		})

		It("matches the package-level Extract", func() {
			a, _ := json.Marshal(Extract(sampleReceipt))
			b, _ := json.Marshal(result)
			Expect(a).To(Equal(b))
		})
	})
})

var _ = DescribeTable("IsCurrencyCode",
	func(code string, expected bool) {
		Expect(IsCurrencyCode(code)).To(Equal(expected))
	},
	Entry("upper-case code", "EUR", true),
	Entry("lower case", "eur", false),
	Entry("too short", "EU", false),
	Entry("too long", "EURO", false),
	Entry("digits", "E1R", false),
	Entry("non-ASCII letters", "ÉUR", false),
)
