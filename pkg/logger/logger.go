package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Log 是全局的logrus实例，未调用InitLogger时也可以直接使用（输出到控制台）
var Log = logrus.New()

// InitLogger 初始化全局Logger：JSON格式，按level过滤，file非空时同时写文件
func InitLogger(level, file string) error {
	Log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
	})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("无效的日志级别 %q: %w", level, err)
	}
	Log.SetLevel(lvl)

	if file == "" {
		Log.SetOutput(os.Stdout)
		return nil
	}
	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("无法打开日志文件: %w", err)
	}
	// 日志同时打印在控制台和文件里
	Log.SetOutput(io.MultiWriter(os.Stdout, f))
	return nil
}
