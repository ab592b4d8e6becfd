package logger_test

import (
	"bytes"
	"encoding/json"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/relloyd/starpipe/logger"
)

var _ = Describe("Logger", func() {
	var (
		log       *logger.LoggerImpl
		logOutput *bytes.Buffer
		actual    map[string]interface{}
	)

	BeforeEach(func() {
		log = logger.NewLogger("test-service", "debug", true)
		logOutput = bytes.NewBufferString("")
		log.SetOutput(logOutput)
		actual = nil
	})

	decode := func() {
		Expect(json.Unmarshal(logOutput.Bytes(), &actual)).To(Succeed())
	}

	It("Should have `test-service` as service name", func() {
		log.Info("Testing")
		decode()
		Expect(actual["service"]).To(Equal("test-service"))
	})

	It("Should have info as log level", func() {
		log.Info("Testing")
		decode()
		Expect(actual["level"]).To(Equal("info"))
	})

	It("Should have warn as log level", func() {
		log.Warn("Testing")
		decode()
		Expect(actual["level"]).To(Equal("warning"))
	})

	It("Should have error as log level with a stack trace", func() {
		log.Error("Testing")
		decode()
		Expect(actual["level"]).To(Equal("error"))
		Expect(actual["stackTrace"]).ToNot(BeNil())
	})

	It("Should have `Testing` as msg", func() {
		log.Info("Testing")
		decode()
		Expect(actual["msg"]).To(Equal("Testing"))
	})

	It("Should carry fields added with WithField", func() {
		child := log.WithField("runId", "abc123")
		child.Info("Testing")
		decode()
		Expect(actual["runId"]).To(Equal("abc123"))
		Expect(actual["service"]).To(Equal("test-service"))
	})

	It("Should not write debug output above the configured level", func() {
		quiet := logger.NewLogger("test-service", "error", false)
		quiet.SetOutput(logOutput)
		quiet.Debug("hidden")
		Expect(logOutput.Len()).To(BeZero())
	})
})
