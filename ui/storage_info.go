package ui

import (
	"fmt"
	"runtime"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"bugeai-chat/db"
	"bugeai-chat/utils"
)

// formatBytes renders a byte count for humans
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

// storageSummary describes the database and process memory
func storageSummary(stats *db.DBStats, mem *runtime.MemStats) string {
	return fmt.Sprintf("对话数: %d\n消息数: %d\n数据库大小: %s\n\n已分配内存: %s\n系统内存: %s\nGC 次数: %d",
		stats.ChatCount, stats.MessageCount, formatBytes(stats.DBSizeBytes),
		formatBytes(int64(mem.Alloc)), formatBytes(int64(mem.Sys)), mem.NumGC)
}

// showStorageInfo shows database statistics with a compact action
func (a *App) showStorageInfo() {
	summary := widget.NewLabel("")

	update := func() {
		stats, err := a.db.GetStats()
		if err != nil {
			a.logger.Error("Failed to read database stats: %v", err)
			summary.SetText("无法读取统计信息: " + err.Error())
			return
		}
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		summary.SetText(storageSummary(stats, &m))
	}
	update()

	vacuum := widget.NewButton("压缩数据库", nil)
	vacuum.OnTapped = func() {
		vacuum.Disable()
		utils.SafeGoWithError(a.logger, "vacuum", func() error {
			defer fyne.Do(vacuum.Enable)
			if err := a.db.Vacuum(); err != nil {
				return err
			}
			runtime.GC()
			a.logger.Info("Database vacuumed")
			fyne.Do(update)
			return nil
		}, func(err error) {
			fyne.Do(func() { a.showError("压缩失败: " + err.Error()) })
		})
	}

	var popup *widget.PopUp
	popup = widget.NewModalPopUp(
		container.NewVBox(
			widget.NewLabel("存储信息"),
			widget.NewSeparator(),
			summary,
			widget.NewSeparator(),
			container.NewGridWithColumns(2,
				widget.NewButton("刷新", update),
				vacuum,
			),
			widget.NewButton("关闭", func() { popup.Hide() }),
		),
		a.window.Canvas(),
	)
	popup.Show()
}
