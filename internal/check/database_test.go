package check

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"splitcheck/internal/parsing"
	"splitcheck/internal/split"
)

var _ = Describe("BoltDB", func() {
	var (
		tmpDir string
		dbPath string
		db     *BoltDB
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		dbPath = filepath.Join(tmpDir, "test.db")
		var err error
		db, err = NewBoltDB(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	newCheck := func(id string) *Check {
		return &Check{
			ID: id,
			Items: []parsing.Item{
				{Name: "Burger", Quantity: 1, Price: decimalFromString("8.50")},
				{Name: "Fries", Quantity: 2, Price: decimalFromString("3.25")},
			},
			Participants: []string{"Alice", "Bob"},
			Assignment:   [][]bool{{true, false}, {true, true}},
			PayerIndex:   split.NoPayer,
			ImageFile:    "check.jpg",
			ContentType:  "image/jpeg",
			CreatedAt:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
			UpdatedAt:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		}
	}

	Describe("SaveCheck", func() {
		var (
			c   *Check
			err error
		)

		BeforeEach(func() {
			c = newCheck("test-id")
		})

		JustBeforeEach(func() {
			err = db.SaveCheck(c)
		})

		When("saving succeeds", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should save the check to the database", func() {
				saved, getErr := db.GetCheck("test-id")
				Expect(getErr).NotTo(HaveOccurred())
				Expect(saved.ID).To(Equal("test-id"))
			})
		})
	})

	Describe("GetCheck", func() {
		When("the check exists", func() {
			BeforeEach(func() {
				Expect(db.SaveCheck(newCheck("test-id"))).To(Succeed())
			})

			It("round-trips all fields", func() {
				saved, err := db.GetCheck("test-id")
				Expect(err).NotTo(HaveOccurred())
				Expect(saved.Items).To(HaveLen(2))
				Expect(saved.Items[0].Name).To(Equal("Burger"))
				Expect(saved.Items[0].Price.StringFixed(2)).To(Equal("8.50"))
				Expect(saved.Participants).To(Equal([]string{"Alice", "Bob"}))
				Expect(saved.Assignment).To(Equal([][]bool{{true, false}, {true, true}}))
				Expect(saved.PayerIndex).To(Equal(split.NoPayer))
			})
		})

		When("the check does not exist", func() {
			It("returns an error", func() {
				_, err := db.GetCheck("missing")
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("not found"))
			})
		})
	})

	Describe("ListChecks", func() {
		When("the database is empty", func() {
			It("returns an empty list", func() {
				checks, err := db.ListChecks()
				Expect(err).NotTo(HaveOccurred())
				Expect(checks).To(BeEmpty())
			})
		})

		When("checks exist", func() {
			BeforeEach(func() {
				Expect(db.SaveCheck(newCheck("id1"))).To(Succeed())
				Expect(db.SaveCheck(newCheck("id2"))).To(Succeed())
			})

			It("returns all of them", func() {
				checks, err := db.ListChecks()
				Expect(err).NotTo(HaveOccurred())
				Expect(checks).To(HaveLen(2))
			})
		})
	})

	Describe("DeleteCheck", func() {
		BeforeEach(func() {
			Expect(db.SaveCheck(newCheck("test-id"))).To(Succeed())
		})

		It("removes the check", func() {
			Expect(db.DeleteCheck("test-id")).To(Succeed())
			_, err := db.GetCheck("test-id")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("persistence across reopen", func() {
		It("keeps saved checks", func() {
			Expect(db.SaveCheck(newCheck("test-id"))).To(Succeed())
			Expect(db.Close()).To(Succeed())

			var err error
			db, err = NewBoltDB(dbPath)
			Expect(err).NotTo(HaveOccurred())

			saved, err := db.GetCheck("test-id")
			Expect(err).NotTo(HaveOccurred())
			Expect(saved.Items).To(HaveLen(2))
		})
	})
})
