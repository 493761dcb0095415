package logx

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New 组装 zap.Logger：传入的 core 叠加默认选项（caller + 条件堆栈）。
func New(core zapcore.Core, options ...zap.Option) *zap.Logger {
	return zap.New(core, append(defaultOptions(), options...)...)
}

// NewStderrCore 返回绑定到标准错误输出的 core。CLI 的结构化日志走 stderr，
// stdout 留给命令的 JSON 输出。
func NewStderrCore(enabler zapcore.LevelEnabler) zapcore.Core {
	return zapcore.NewCore(defaultEncoder(), zapcore.Lock(zapcore.AddSync(os.Stderr)), enabler)
}

// NewFileCore 返回绑定到轮转文件的 core。
// lumberjack 持有文件但不暴露 sync，所以额外返回 closer，进程退出前必须 close
// 以保证内容全部落盘。
func NewFileCore(filePath string, enabler zapcore.LevelEnabler) (zapcore.Core, io.Closer) {
	writer := &lumberjack.Logger{
		Filename:  filePath,
		MaxSize:   200, // MB
		LocalTime: true,
		Compress:  true,
	}
	return zapcore.NewCore(defaultEncoder(), zapcore.AddSync(writer), enabler), writer
}

func defaultEncoder() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewJSONEncoder(cfg)
}

func defaultOptions() []zap.Option {
	var stackTraceLevel zap.LevelEnablerFunc = func(level zapcore.Level) bool {
		return level >= zapcore.DPanicLevel
	}
	return []zap.Option{
		zap.AddCaller(),
		zap.AddStacktrace(stackTraceLevel),
	}
}
