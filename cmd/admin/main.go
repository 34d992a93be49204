package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"kcbxt/internal/config"
	"kcbxt/internal/gallery"
	"kcbxt/internal/schedule"
	"kcbxt/internal/storage"
)

// 维护工具：直接读取数据目录，检查已持久化的课程表与图库元数据。
func main() {
	var (
		dataDir       = flag.String("data-dir", "", "数据目录（可选，默认读 DATA_DIR）")
		storageDir    = flag.String("storage-dir", "", "图库本地存储目录（可选，默认读 STORAGE_LOCAL_DIR）")
		listSchedules = flag.Bool("list-schedules", false, "列出所有用户的课程表概要")
		user          = flag.String("user", "", "输出指定用户的完整课程表")
		listGalleries = flag.Bool("list-galleries", false, "列出图库元数据")
	)
	flag.Parse()

	dir := strings.TrimSpace(*dataDir)
	if dir == "" {
		dir = os.Getenv("DATA_DIR")
	}
	if dir == "" {
		dir = "data"
	}

	if !*listSchedules && *user == "" && !*listGalleries {
		flag.Usage()
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	store, err := schedule.NewFileStore(filepath.Join(dir, "schedules"), logger)
	if err != nil {
		log.Fatalf("open schedule store: %v", err)
	}

	if *listSchedules {
		err := store.ForEach(func(userID string, sched schedule.UserSchedule) {
			fmt.Printf("%s\t%d门课程\ttarget=%s\n", userID, len(sched.Courses), sched.NotifyTarget)
		})
		if err != nil {
			log.Fatalf("list schedules: %v", err)
		}
	}

	if *user != "" {
		sched, err := store.Load(*user)
		if err != nil {
			log.Fatalf("load schedule for %q: %v", *user, err)
		}
		fmt.Printf("用户 %s（target=%s）：\n", *user, sched.NotifyTarget)
		for _, c := range sched.Courses {
			fmt.Printf("  %s %s %s %s\n", c.Course, c.Time, c.Location, c.Teacher)
		}
	}

	if *listGalleries {
		objectStore, err := newObjectStorage(*storageDir)
		if err != nil {
			log.Fatalf("open object storage: %v", err)
		}
		manager, err := gallery.NewManager(objectStore, filepath.Join(dir, "galleries.json"), config.GalleryConfig{Capacity: 200})
		if err != nil {
			log.Fatalf("open gallery metadata: %v", err)
		}
		for _, g := range manager.List() {
			info, err := g.Info(context.Background())
			if err != nil {
				log.Printf("read gallery %q: %v", g.Name(), err)
				continue
			}
			fmt.Printf("%s\t%d/%d张\tcreator=%s\n", info.Name, info.ImageCount, info.Capacity, info.CreatorName)
		}
	}
}

// 管理工具只面向本地部署，统一使用本地存储后端。
// 目录解析顺序与 api 服务保持一致：命令行参数、STORAGE_LOCAL_DIR、内置默认值，
// 保证 -list-galleries 看到的就是 api 正在写的那棵目录树。
func newObjectStorage(storageDir string) (storage.ObjectStorage, error) {
	dir := strings.TrimSpace(storageDir)
	if dir == "" {
		dir = os.Getenv("STORAGE_LOCAL_DIR")
	}
	if dir == "" {
		dir = "data/galleries"
	}
	return storage.NewLocal(dir)
}
