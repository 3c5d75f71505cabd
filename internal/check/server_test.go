package check

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"splitcheck/internal/ocr"
	"splitcheck/internal/parsing"
	"splitcheck/internal/split"
)

var _ = Describe("Server", func() {
	var (
		db          *mockDB
		recognizer  *mockRecognizer
		storage     *mockStorage
		service     *Service
		auth        BasicAuth
		server      *Server
		ghttpServer *ghttp.Server
	)

	setupServer := func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
		server = NewServerWithMux(service, auth, http.NewServeMux())
		ghttpServer = ghttp.NewServer()
		ghttpServer.AppendHandlers(server.ServeHTTP)
	}

	seedCheck := func() {
		db.checks["check-1"] = &Check{
			ID: "check-1",
			Items: []parsing.Item{
				{Name: "Pizza", Quantity: 1, Price: decimalFromString("10.00")},
				{Name: "Beer", Quantity: 1, Price: decimalFromString("5.00")},
			},
			Participants: []string{"Alice", "Bob"},
			Assignment:   [][]bool{{true, false}, {true, true}},
			PayerIndex:   split.NoPayer,
		}
	}

	BeforeEach(func() {
		db = newMockDB()
		recognizer = newMockRecognizer()
		storage = newMockStorage()
		service = NewService(db, recognizer, storage, parsing.Extractor{})
		auth = BasicAuth{}
		setupServer()
	})

	AfterEach(func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
	})

	Describe("POST /api/checks", func() {
		var uploadResponse *http.Response

		upload := func(people string) {
			var body bytes.Buffer
			writer := multipart.NewWriter(&body)
			part, err := writer.CreateFormFile("image", "photo.jpg")
			Expect(err).NotTo(HaveOccurred())
			_, err = part.Write([]byte("image-bytes"))
			Expect(err).NotTo(HaveOccurred())
			if people != "" {
				Expect(writer.WriteField("people", people)).To(Succeed())
			}
			Expect(writer.Close()).To(Succeed())

			uploadResponse, err = http.Post(ghttpServer.URL()+"/api/checks", writer.FormDataContentType(), &body)
			Expect(err).NotTo(HaveOccurred())
		}

		BeforeEach(func() {
			recognizer.fragments = []ocr.TextFragment{
				{Text: "Coffee", Box: ocr.Box{Top: 100, Bottom: 120, Left: 10, Right: 90}},
				{Text: "4.00", Box: ocr.Box{Top: 101, Bottom: 121, Left: 200, Right: 240}},
			}
		})

		It("creates a check from the uploaded image", func() {
			upload("2")
			defer uploadResponse.Body.Close()
			Expect(uploadResponse.StatusCode).To(Equal(http.StatusCreated))

			var c Check
			Expect(json.NewDecoder(uploadResponse.Body).Decode(&c)).To(Succeed())
			Expect(c.Items).To(HaveLen(1))
			Expect(c.Items[0].Name).To(Equal("Coffee"))
			Expect(c.Participants).To(HaveLen(2))
		})

		It("defaults to one participant", func() {
			upload("")
			defer uploadResponse.Body.Close()

			var c Check
			Expect(json.NewDecoder(uploadResponse.Body).Decode(&c)).To(Succeed())
			Expect(c.Participants).To(Equal([]string{"Person 1"}))
		})

		It("rejects an invalid people count", func() {
			upload("zero")
			defer uploadResponse.Body.Close()
			Expect(uploadResponse.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("rejects a request without an image", func() {
			var body bytes.Buffer
			writer := multipart.NewWriter(&body)
			Expect(writer.WriteField("people", "2")).To(Succeed())
			Expect(writer.Close()).To(Succeed())

			resp, err := http.Post(ghttpServer.URL()+"/api/checks", writer.FormDataContentType(), &body)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("POST /api/checks/text", func() {
		It("creates a check from a raw text dump", func() {
			reqBody := `{"text": "1x Burger 8.50\nSubtotal 8.50", "people": 2}`
			resp, err := http.Post(ghttpServer.URL()+"/api/checks/text", "application/json", strings.NewReader(reqBody))
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))

			var c Check
			Expect(json.NewDecoder(resp.Body).Decode(&c)).To(Succeed())
			Expect(c.Items).To(HaveLen(1))
			Expect(c.Items[0].Name).To(Equal("Burger"))
		})

		It("rejects an invalid body", func() {
			resp, err := http.Post(ghttpServer.URL()+"/api/checks/text", "application/json", strings.NewReader("not json"))
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("GET /api/checks", func() {
		It("returns an empty array when there are no checks", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/checks")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(strings.TrimSpace(string(body))).To(Equal("[]"))
		})

		It("returns all checks", func() {
			seedCheck()
			resp, err := http.Get(ghttpServer.URL() + "/api/checks")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			var checks []*Check
			Expect(json.NewDecoder(resp.Body).Decode(&checks)).To(Succeed())
			Expect(checks).To(HaveLen(1))
		})
	})

	Describe("GET /api/checks/{id}", func() {
		It("returns the check", func() {
			seedCheck()
			resp, err := http.Get(ghttpServer.URL() + "/api/checks/check-1")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var c Check
			Expect(json.NewDecoder(resp.Body).Decode(&c)).To(Succeed())
			Expect(c.ID).To(Equal("check-1"))
		})

		It("returns 404 for a missing check", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/checks/missing")
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("DELETE /api/checks/{id}/items/{index}", func() {
		BeforeEach(seedCheck)

		It("removes the item and its assignment row", func() {
			req, err := http.NewRequest("DELETE", ghttpServer.URL()+"/api/checks/check-1/items/0", nil)
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var c Check
			Expect(json.NewDecoder(resp.Body).Decode(&c)).To(Succeed())
			Expect(c.Items).To(HaveLen(1))
			Expect(c.Assignment).To(HaveLen(1))
		})

		It("returns 400 for an out of range index", func() {
			req, err := http.NewRequest("DELETE", ghttpServer.URL()+"/api/checks/check-1/items/9", nil)
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("PUT /api/checks/{id}/participants/{index}", func() {
		BeforeEach(seedCheck)

		It("renames the participant", func() {
			req, err := http.NewRequest("PUT", ghttpServer.URL()+"/api/checks/check-1/participants/0", strings.NewReader(`{"name": "Carol"}`))
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var c Check
			Expect(json.NewDecoder(resp.Body).Decode(&c)).To(Succeed())
			Expect(c.Participants[0]).To(Equal("Carol"))
		})
	})

	Describe("PUT /api/checks/{id}/assignments", func() {
		BeforeEach(seedCheck)

		It("updates the assignment matrix", func() {
			req, err := http.NewRequest("PUT", ghttpServer.URL()+"/api/checks/check-1/assignments", strings.NewReader(`{"item": 0, "participant": 1, "shared": true}`))
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			var c Check
			Expect(json.NewDecoder(resp.Body).Decode(&c)).To(Succeed())
			Expect(c.Assignment[0][1]).To(BeTrue())
		})

		It("returns 400 for an out of range index", func() {
			req, err := http.NewRequest("PUT", ghttpServer.URL()+"/api/checks/check-1/assignments", strings.NewReader(`{"item": 9, "participant": 0, "shared": true}`))
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("PUT /api/checks/{id}/payer", func() {
		BeforeEach(seedCheck)

		It("sets the payer", func() {
			req, err := http.NewRequest("PUT", ghttpServer.URL()+"/api/checks/check-1/payer", strings.NewReader(`{"payer_index": 1}`))
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			var c Check
			Expect(json.NewDecoder(resp.Body).Decode(&c)).To(Succeed())
			Expect(c.PayerIndex).To(Equal(1))
		})
	})

	Describe("GET /api/checks/{id}/summary", func() {
		BeforeEach(seedCheck)

		It("returns the computed settlement", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/checks/check-1/summary")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var result split.Result
			Expect(json.NewDecoder(resp.Body).Decode(&result)).To(Succeed())
			Expect(result.Total.StringFixed(2)).To(Equal("15.00"))
			Expect(result.Owed[0].StringFixed(2)).To(Equal("12.50"))
			Expect(result.Owed[1].StringFixed(2)).To(Equal("2.50"))
		})
	})

	Describe("basic auth", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "user", Password: "pass"}
			setupServer()
		})

		It("rejects requests without credentials", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/checks")
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		})

		It("accepts requests with valid credentials", func() {
			req, err := http.NewRequest("GET", ghttpServer.URL()+"/api/checks", nil)
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("user:pass")))
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})

		It("rejects requests with wrong credentials", func() {
			req, err := http.NewRequest("GET", ghttpServer.URL()+"/api/checks", nil)
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("user:wrong")))
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		})
	})
})
