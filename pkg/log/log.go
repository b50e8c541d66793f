// Package log 是对 zap SugaredLogger 的一层薄封装，提供全局日志函数。
package log

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// 在 Init 之前默认使用 no-op logger，纯计算包和测试可以直接调用日志函数。
var sugar = zap.NewNop().Sugar()

// Init 初始化 zap logger
func Init(level, format, outputPath string) {
	var err error
	var logger *zap.Logger
	var zapConfig zap.Config

	// 根据配置设置日志级别
	logLevel := zap.NewAtomicLevel()
	if err := logLevel.UnmarshalText([]byte(level)); err != nil {
		logLevel.SetLevel(zap.InfoLevel)
	}

	// 根据配置设置编码格式
	encoding := "json"
	if format == "console" {
		encoding = "console"
	}

	if format == "console" {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zapConfig = zap.NewProductionConfig()
	}

	zapConfig.Level = logLevel
	zapConfig.Encoding = encoding
	zapConfig.OutputPaths = []string{"stdout"}
	if outputPath != "" {
		// 同时输出到文件和 stdout
		_ = os.MkdirAll(outputPath, os.ModePerm)
		zapConfig.OutputPaths = append(zapConfig.OutputPaths, outputPath+"/app.log")
	}

	logger, err = zapConfig.Build()
	if err != nil {
		panic(err)
	}

	sugar = logger.Sugar()
}

// Debugf 使用格式化字符串记录一条 debug 级别的日志
func Debugf(template string, args ...interface{}) {
	sugar.Debugf(template, args...)
}

// Info 记录一条 info 级别的日志
func Info(msg string) {
	sugar.Info(msg)
}

// Infof 使用格式化字符串记录一条 info 级别的日志
func Infof(template string, args ...interface{}) {
	sugar.Infof(template, args...)
}

// Infow 使用键值对记录一条 info 级别的结构化日志。
// 这是记录复杂上下文信息的首选方法。
func Infow(msg string, keysAndValues ...interface{}) {
	sugar.Infow(msg, keysAndValues...)
}

// Warnf 使用格式化字符串记录一条 warn 级别的日志
func Warnf(template string, args ...interface{}) {
	sugar.Warnf(template, args...)
}

// Warnw 使用键值对记录一条 warn 级别的结构化日志。
func Warnw(msg string, keysAndValues ...interface{}) {
	sugar.Warnw(msg, keysAndValues...)
}

// Error 记录一条 error 级别的日志，并附带 error 信息
func Error(msg string, err error) {
	sugar.Errorw(msg, "error", err)
}

// Errorf 使用格式化字符串记录一条 error 级别的日志
func Errorf(template string, args ...interface{}) {
	sugar.Errorf(template, args...)
}

// Fatal 记录一条 fatal 级别的日志，并附带 error 信息，然后退出程序
func Fatal(msg string, err error) {
	sugar.Fatalw(msg, "error", err)
}

func Fatalf(template string, args ...interface{}) {
	sugar.Fatalf(template, args...)
}

// Sync 将缓冲区中的任何日志刷新（写入）到底层 Writer。
func Sync() {
	_ = sugar.Sync()
}

// Component 是带组件前缀的日志记录器，消息以 "[组件名] " 开头，
// 结构化日志额外带上 component 字段。
type Component struct {
	prefix string
	name   string
}

// For 返回指定组件的日志记录器，通常作为包级变量声明。
// 每次调用都读取当前的全局 logger，因此可以在 Init 之前创建。
func For(name string) Component {
	return Component{prefix: "[" + name + "] ", name: name}
}

func (c Component) Debugf(template string, args ...interface{}) {
	sugar.Debugf(c.prefix+template, args...)
}

func (c Component) Infof(template string, args ...interface{}) {
	sugar.Infof(c.prefix+template, args...)
}

// Infow 记录结构化日志。
func (c Component) Infow(msg string, keysAndValues ...interface{}) {
	sugar.Infow(c.prefix+msg, append([]interface{}{"component", c.name}, keysAndValues...)...)
}

func (c Component) Warnf(template string, args ...interface{}) {
	sugar.Warnf(c.prefix+template, args...)
}

func (c Component) Errorf(template string, args ...interface{}) {
	sugar.Errorf(c.prefix+template, args...)
}
