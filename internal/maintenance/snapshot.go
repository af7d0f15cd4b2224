package maintenance

import (
	"os"
	"path/filepath"
	"time"

	"github.com/shirou/gopsutil/v3/disk"

	"dockmaint/pkg/logx"
)

const probeTimeout = 15 * time.Second

// logSnapshot records free space on the volume holding the disk image and the
// image size itself, once before and once after a run. Both readings are
// best-effort; a missing image path just drops the field.
func (t *Task) logSnapshot(phase string) {
	fields := []logx.Field{logx.String("phase", phase)}

	if t.imagePath != "" {
		if du, err := disk.Usage(filepath.Dir(t.imagePath)); err == nil {
			fields = append(fields,
				logx.Uint64("disk_free_bytes", du.Free),
				logx.Float64("disk_used_pct", du.UsedPercent),
			)
		}
		if st, err := os.Stat(t.imagePath); err == nil {
			fields = append(fields, logx.Int64("image_bytes", st.Size()))
		}
	}

	t.log.Info("host snapshot", fields...)
}
