package host

import (
	"github.com/gin-gonic/gin"
	"net/http"
)

// InstallHandler exposes the health of the machine the bus master runs on.
func InstallHandler(group *gin.RouterGroup) {
	group.GET("/host", getHostInfo)
	group.GET("/host/cpu", getHostCpu)
	group.GET("/host/mem", getHostMem)
	group.GET("/host/disk", getHostDisk)
}

func getHostInfo(c *gin.Context) {
	info, err := getInfo()
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, ResponseModel{Info: info})
}

func getHostCpu(c *gin.Context) {
	cpus, err := getCpu()
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, ResponseModel{Cpus: cpus})
}

func getHostMem(c *gin.Context) {
	m, err := getMem()
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, ResponseModel{Mem: m})
}

func getHostDisk(c *gin.Context) {
	disks, err := getDisk()
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, ResponseModel{Disks: disks})
}
