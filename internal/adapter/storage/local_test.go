package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLocalStorage(t *testing.T) {
	Convey("Given a LocalStorage", t, func() {
		tempDir, err := os.MkdirTemp("", "local_storage_test")
		So(err, ShouldBeNil)
		defer os.RemoveAll(tempDir)

		ctx := context.Background()

		Convey("NewLocal", func() {
			Convey("When creating with a non-existent path", func() {
				newPath := filepath.Join(tempDir, "new", "nested", "dir")
				storage, err := NewLocal(newPath)

				Convey("It should create the directory", func() {
					So(err, ShouldBeNil)
					So(storage.basePath, ShouldEqual, newPath)

					info, err := os.Stat(newPath)
					So(err, ShouldBeNil)
					So(info.IsDir(), ShouldBeTrue)
				})
			})
		})

		Convey("Upload method", func() {
			storage, _ := NewLocal(filepath.Join(tempDir, "store"))

			Convey("When uploading a valid file", func() {
				sourceFile := filepath.Join(tempDir, "source.tar.gz")
				So(os.WriteFile(sourceFile, []byte("archive"), 0644), ShouldBeNil)

				err := storage.Upload(ctx, sourceFile, "backup-app.tar.gz")

				Convey("It should copy the content and keep the source", func() {
					So(err, ShouldBeNil)

					content, err := os.ReadFile(filepath.Join(tempDir, "store", "backup-app.tar.gz"))
					So(err, ShouldBeNil)
					So(string(content), ShouldEqual, "archive")

					_, err = os.Stat(sourceFile)
					So(err, ShouldBeNil)
				})
			})

			Convey("When the source file does not exist", func() {
				err := storage.Upload(ctx, "nonexistent.tar.gz", "backup-app.tar.gz")

				Convey("It should return an error", func() {
					So(err, ShouldNotBeNil)
					So(err.Error(), ShouldContainSubstring, "failed to open source")
				})
			})
		})

		Convey("List method", func() {
			storage, _ := NewLocal(tempDir)
			os.WriteFile(filepath.Join(tempDir, "file1.tar.gz"), []byte("test"), 0644)
			os.WriteFile(filepath.Join(tempDir, "file2.tar.gz"), []byte("test"), 0644)
			os.Mkdir(filepath.Join(tempDir, "subdir"), 0755)

			files, err := storage.List(ctx)

			Convey("It should list only files", func() {
				So(err, ShouldBeNil)
				So(files, ShouldHaveLength, 2)
				So(files, ShouldContain, "file1.tar.gz")
				So(files, ShouldNotContain, "subdir")
			})
		})

		Convey("Delete method", func() {
			storage, _ := NewLocal(tempDir)

			Convey("When deleting an existing file", func() {
				os.WriteFile(filepath.Join(tempDir, "delete_me.tar.gz"), []byte("test"), 0644)
				err := storage.Delete(ctx, "delete_me.tar.gz")

				Convey("It should delete it", func() {
					So(err, ShouldBeNil)
					_, err := os.Stat(filepath.Join(tempDir, "delete_me.tar.gz"))
					So(os.IsNotExist(err), ShouldBeTrue)
				})
			})

			Convey("When deleting a non-existent file", func() {
				err := storage.Delete(ctx, "nonexistent.tar.gz")

				Convey("It should return an error", func() {
					So(err, ShouldNotBeNil)
					So(err.Error(), ShouldContainSubstring, "failed to delete file")
				})
			})
		})

		Convey("GetOldFiles method", func() {
			storage, _ := NewLocal(tempDir)

			oldFile := filepath.Join(tempDir, "old.tar.gz")
			os.WriteFile(oldFile, []byte("test"), 0644)
			oldTime := time.Now().Add(-10 * 24 * time.Hour)
			os.Chtimes(oldFile, oldTime, oldTime)
			os.WriteFile(filepath.Join(tempDir, "new.tar.gz"), []byte("test"), 0644)

			oldFiles, err := storage.GetOldFiles(ctx, time.Now().Add(-7*24*time.Hour))

			Convey("It should return only old files", func() {
				So(err, ShouldBeNil)
				So(oldFiles, ShouldResemble, []string{"old.tar.gz"})
			})
		})
	})
}
